package tui

import (
	"bufio"
	"io"
)

// Key identifies a decoded keyboard event.
type Key int

const (
	KeyRune Key = iota
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyTab
	KeyEsc
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyCtrlA
	KeyCtrlC
	KeyCtrlD
	KeyCtrlE
	KeyCtrlK
	KeyCtrlL
	KeyCtrlU
	KeyCtrlW
)

// KeyEvent is one decoded key press. Rune is set only for KeyRune.
type KeyEvent struct {
	Key  Key
	Rune rune
}

// KeyReader decodes raw terminal bytes into key events, including the common
// xterm escape sequences for arrows, Home/End and Delete.
type KeyReader struct {
	r *bufio.Reader
}

func NewKeyReader(r io.Reader) *KeyReader {
	return &KeyReader{r: bufio.NewReader(r)}
}

func (k *KeyReader) Read() (KeyEvent, error) {
	c, _, err := k.r.ReadRune()
	if err != nil {
		return KeyEvent{}, err
	}
	switch c {
	case '\r', '\n':
		return KeyEvent{Key: KeyEnter}, nil
	case '\t':
		return KeyEvent{Key: KeyTab}, nil
	case 0x7f, 0x08:
		return KeyEvent{Key: KeyBackspace}, nil
	case 0x01:
		return KeyEvent{Key: KeyCtrlA}, nil
	case 0x03:
		return KeyEvent{Key: KeyCtrlC}, nil
	case 0x04:
		return KeyEvent{Key: KeyCtrlD}, nil
	case 0x05:
		return KeyEvent{Key: KeyCtrlE}, nil
	case 0x0b:
		return KeyEvent{Key: KeyCtrlK}, nil
	case 0x0c:
		return KeyEvent{Key: KeyCtrlL}, nil
	case 0x15:
		return KeyEvent{Key: KeyCtrlU}, nil
	case 0x17:
		return KeyEvent{Key: KeyCtrlW}, nil
	case 0x1b:
		return k.readEscape()
	}
	if c < 0x20 {
		// Unhandled control byte, swallow it.
		return KeyEvent{Key: KeyRune, Rune: 0}, nil
	}
	return KeyEvent{Key: KeyRune, Rune: c}, nil
}

// readEscape decodes the sequence after ESC. A bare Esc press arrives with
// nothing buffered behind it.
func (k *KeyReader) readEscape() (KeyEvent, error) {
	if k.r.Buffered() == 0 {
		return KeyEvent{Key: KeyEsc}, nil
	}
	b, err := k.r.ReadByte()
	if err != nil {
		return KeyEvent{Key: KeyEsc}, nil
	}
	if b != '[' && b != 'O' {
		return KeyEvent{Key: KeyEsc}, nil
	}
	var params []byte
	for {
		c, err := k.r.ReadByte()
		if err != nil {
			return KeyEvent{Key: KeyEsc}, nil
		}
		if c >= '0' && c <= '9' || c == ';' {
			params = append(params, c)
			continue
		}
		switch c {
		case 'A':
			return KeyEvent{Key: KeyUp}, nil
		case 'B':
			return KeyEvent{Key: KeyDown}, nil
		case 'C':
			return KeyEvent{Key: KeyRight}, nil
		case 'D':
			return KeyEvent{Key: KeyLeft}, nil
		case 'H':
			return KeyEvent{Key: KeyHome}, nil
		case 'F':
			return KeyEvent{Key: KeyEnd}, nil
		case '~':
			switch string(params) {
			case "1", "7":
				return KeyEvent{Key: KeyHome}, nil
			case "3":
				return KeyEvent{Key: KeyDelete}, nil
			case "4", "8":
				return KeyEvent{Key: KeyEnd}, nil
			}
			return KeyEvent{Key: KeyEsc}, nil
		default:
			return KeyEvent{Key: KeyEsc}, nil
		}
	}
}
