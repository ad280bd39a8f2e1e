package hotkey

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	gohook "github.com/robotn/gohook"
)

// Parse normalizes a combo like "Ctrl+Alt+S" into lowercase key names.
func Parse(combo string) ([]string, error) {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		switch part {
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty hotkey combination %q", combo)
	}
	for _, key := range keys {
		if len(keyRawcodes(key)) == 0 {
			return nil, fmt.Errorf("unknown key %q in hotkey %q", key, combo)
		}
	}
	return keys, nil
}

// keyRawcodes maps a key name to its virtual key code rawcodes. Modifiers
// return both left and right variants.
func keyRawcodes(name string) []uint16 {
	switch name {
	case "ctrl":
		return []uint16{162, 163} // VK_LCONTROL, VK_RCONTROL
	case "alt":
		return []uint16{164, 165} // VK_LMENU, VK_RMENU
	case "shift":
		return []uint16{160, 161} // VK_LSHIFT, VK_RSHIFT
	case "cmd":
		return []uint16{91, 92} // VK_LWIN, VK_RWIN
	case "space":
		return []uint16{32}
	case "enter", "return":
		return []uint16{13}
	case "esc", "escape":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65} // VK_A..VK_Z
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48} // VK_0..VK_9
		}
	}
	if rest, ok := strings.CutPrefix(name, "f"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)} // VK_F1..VK_F24
		}
	}
	return nil
}

type keyState struct {
	name     string
	rawcodes []uint16
	pressed  bool
}

// Listen registers the combo and invokes callback each time all of its keys
// are held together. It blocks processing keyboard events until the hook
// channel closes; the callback runs on the event goroutine, so presses during
// a running callback are not re-entered.
func Listen(combo string, callback func()) error {
	keys, err := Parse(combo)
	if err != nil {
		return err
	}

	states := make([]keyState, 0, len(keys))
	for _, name := range keys {
		states = append(states, keyState{name: name, rawcodes: keyRawcodes(name)})
	}
	log.Printf("Hotkey listener configured for: %s", combo)

	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("could not start keyboard hook")
	}
	defer gohook.End()

	for ev := range evChan {
		switch ev.Kind {
		case gohook.KeyDown:
			for i := range states {
				if matches(&states[i], ev.Rawcode) {
					states[i].pressed = true
				}
			}
			if allPressed(states) {
				log.Printf("Hotkey activated: %s", combo)
				for i := range states {
					states[i].pressed = false
				}
				if callback != nil {
					callback()
				}
			}
		case gohook.KeyUp:
			for i := range states {
				if matches(&states[i], ev.Rawcode) {
					states[i].pressed = false
				}
			}
		}
	}
	return nil
}

func matches(s *keyState, rawcode uint16) bool {
	for _, rc := range s.rawcodes {
		if rc == rawcode {
			return true
		}
	}
	return false
}

func allPressed(states []keyState) bool {
	for i := range states {
		if !states[i].pressed {
			return false
		}
	}
	return true
}
