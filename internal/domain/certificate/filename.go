package certificate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/textnorm"
)

const (
	maxPartRunes  = 80
	maxSequence   = 10000
	fileExtension = ".pdf"
	unknownPart   = "unknown"
)

var invalidFileChars = regexp.MustCompile(`[\\/:*?"<>|\r\n\t]+`)

// SanitizePart makes s safe inside a file name: reserved characters
// become "_", whitespace collapses and the result is capped at 80 runes.
// An empty result is "unknown".
func SanitizePart(s string) string {
	cleaned := textnorm.CollapseSpace(invalidFileChars.ReplaceAllString(s, "_"))
	if cleaned == "" {
		return unknownPart
	}
	if r := []rune(cleaned); len(r) > maxPartRunes {
		return string(r[:maxPartRunes])
	}
	return cleaned
}

// Namer hands out unique file names in call order. The first caller
// keeps the base name and later collisions get "_2", "_3" and so on.
// A Namer is not safe for concurrent use.
type Namer struct {
	used map[string]struct{}
}

// NewNamer returns an empty Namer.
func NewNamer() *Namer {
	return &Namer{used: make(map[string]struct{})}
}

// Unique reserves base or the first free numbered variant of it.
func (n *Namer) Unique(base string) (string, error) {
	if _, taken := n.used[base]; !taken {
		n.used[base] = struct{}{}
		return base, nil
	}

	stem := strings.TrimSuffix(base, fileExtension)
	for seq := 2; seq < maxSequence; seq++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, seq, fileExtension)
		if _, taken := n.used[candidate]; !taken {
			n.used[candidate] = struct{}{}
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrDuplicateFilenameExhausted, base)
}

func joinFileName(parts ...string) string {
	return strings.Join(parts, "_") + fileExtension
}
