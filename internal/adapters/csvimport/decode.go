package csvimport

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const bom = "\ufeff"

type decoded struct {
	text   string
	lossy  int
	source string
}

// decode tries UTF-8 and Shift-JIS concurrently and keeps the attempt that
// lost fewer bytes. UTF-8 wins ties.
func decode(ctx context.Context, data []byte) (string, string, error) {
	var utf, sjis decoded

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		utf = decodeUTF8(data)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		sjis, err = decodeShiftJIS(data)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	best := utf
	if sjis.lossy < utf.lossy {
		best = sjis
	}
	if best.lossy > 0 {
		return "", "", fmt.Errorf("%w: %d undecodable sequences", ErrUndecodableEncoding, best.lossy)
	}
	return strings.TrimPrefix(best.text, bom), best.source, nil
}

func decodeUTF8(data []byte) decoded {
	invalid := 0
	for b := data; len(b) > 0; {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		b = b[size:]
	}
	return decoded{text: string(bytes.ToValidUTF8(data, []byte("\ufffd"))), lossy: invalid, source: "utf-8"}
}

func decodeShiftJIS(data []byte) (decoded, error) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err != nil {
		return decoded{}, fmt.Errorf("shift-jis: %w", err)
	}
	text := string(out)
	return decoded{text: text, lossy: strings.Count(text, "\ufffd"), source: "shift_jis"}, nil
}
