package hotkey

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier flags in RegisterHotKey encoding.
const (
	ModAlt      uint32 = 0x0001
	ModControl  uint32 = 0x0002
	ModShift    uint32 = 0x0004
	ModWin      uint32 = 0x0008
	ModNoRepeat uint32 = 0x4000
)

const (
	vkNumpad0  = 0x60
	vkAdd      = 0x6B
	vkSubtract = 0x6D
	vkF1       = 0x70
)

var modifierNames = map[string]uint32{
	"alt":     ModAlt,
	"menu":    ModAlt,
	"ctrl":    ModControl,
	"control": ModControl,
	"shift":   ModShift,
	"win":     ModWin,
	"meta":    ModWin,
	"super":   ModWin,
}

var namedKeys = map[string]uint32{
	"esc":        0x1B,
	"escape":     0x1B,
	"space":      0x20,
	"enter":      0x0D,
	"return":     0x0D,
	"tab":        0x09,
	"backspace":  0x08,
	"insert":     0x2D,
	"delete":     0x2E,
	"home":       0x24,
	"end":        0x23,
	"pageup":     0x21,
	"pagedown":   0x22,
	"left":       0x25,
	"up":         0x26,
	"right":      0x27,
	"down":       0x28,
	"pause":      0x13,
	"scrolllock": 0x91,
	"add":        vkAdd,
	"plus":       vkAdd,
	"kpadd":      vkAdd,
	"subtract":   vkSubtract,
	"minus":      vkSubtract,
	"kpsubtract": vkSubtract,
}

// Chord is a parsed key combination.
type Chord struct {
	Spec string
	Mod  uint32
	VK   uint32
}

// Parse accepts strings like "alt+q", "ctrl+shift+F1", "esc" or
// "numpad5". Exactly one non-modifier key is required.
func Parse(spec string) (Chord, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return Chord{}, fmt.Errorf("empty key")
	}
	parts := strings.Split(s, "+")
	for i := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(parts[i]))
	}

	var mod uint32
	for _, p := range parts[:len(parts)-1] {
		m, ok := modifierNames[p]
		if !ok {
			return Chord{}, fmt.Errorf("unknown modifier %q in %q", p, spec)
		}
		mod |= m
	}

	token := parts[len(parts)-1]
	if _, ok := modifierNames[token]; ok {
		return Chord{}, fmt.Errorf("%q has no key after the modifiers", spec)
	}
	vk, err := keyCode(token)
	if err != nil {
		return Chord{}, fmt.Errorf("%q: %w", spec, err)
	}
	return Chord{Spec: s, Mod: mod, VK: vk}, nil
}

func keyCode(token string) (uint32, error) {
	if len(token) == 1 {
		ch := token[0]
		switch {
		case ch >= 'a' && ch <= 'z':
			return uint32(ch - 'a' + 'A'), nil
		case ch >= '0' && ch <= '9':
			return uint32(ch), nil
		}
	}
	if v, ok := namedKeys[token]; ok {
		return v, nil
	}
	if n, ok := numbered(token, "f"); ok && n >= 1 && n <= 24 {
		return vkF1 + uint32(n-1), nil
	}
	for _, prefix := range []string{"numpad", "num", "kp"} {
		if n, ok := numbered(token, prefix); ok && n >= 0 && n <= 9 {
			return vkNumpad0 + uint32(n), nil
		}
	}
	return 0, fmt.Errorf("unsupported key token %q", token)
}

func numbered(token, prefix string) (int, bool) {
	if !strings.HasPrefix(token, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(token, prefix))
	return n, err == nil
}
