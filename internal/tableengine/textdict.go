package tableengine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"tabledict/internal/engine"
)

// Header keys that name the marker characters of special [Data] lines.
var markerFlags = map[string]engine.PhraseFlag{
	"Pinyin":          engine.FlagPinyin,
	"Prompt":          engine.FlagPrompt,
	"ConstructPhrase": engine.FlagConstructPhrase,
}

func (t *table) loadMain(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open main dictionary: %w", err)
	}
	defer f.Close()

	parsed, err := parseTextDict(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	t.keyCode = parsed.keyCode
	t.maxLen = parsed.maxLen
	t.meta = parsed.meta
	t.main = parsed.entries
	return nil
}

type textDict struct {
	keyCode string
	maxLen  int
	meta    map[string]string
	entries []entry
}

// parseTextDict reads the libime text table format: Key=Value header lines
// followed by a [Data] section of "code word" lines.
func parseTextDict(r io.Reader) (*textDict, error) {
	d := &textDict{meta: make(map[string]string)}
	markers := make(map[rune]engine.PhraseFlag)
	perCode := make(map[string]uint32)

	section := ""
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			if section == "Data" {
				for key, flag := range markerFlags {
					if m := d.meta[key]; m != "" {
						r := []rune(m)
						if len(r) != 1 {
							return nil, fmt.Errorf("line %d: %s marker must be one character", lineNo, key)
						}
						markers[r[0]] = flag
					}
				}
			}
			continue
		}

		switch section {
		case "":
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				return nil, fmt.Errorf("line %d: expected Key=Value, got %q", lineNo, line)
			}
			key, value = strings.TrimSpace(key), strings.TrimSpace(value)
			d.meta[key] = value
			switch key {
			case "KeyCode":
				d.keyCode = value
			case "Length":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("line %d: invalid Length %q", lineNo, value)
				}
				d.maxLen = n
			}
		case "Data":
			fields := strings.Fields(line)
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: expected \"code word\", got %q", lineNo, line)
			}
			code, word := fields[0], norm.NFC.String(fields[1])
			flag := engine.FlagNone
			if first := []rune(code)[0]; markers[first] != 0 {
				flag = markers[first]
				code = code[len(string(first)):]
			}
			t := &table{keyCode: d.keyCode, maxLen: d.maxLen}
			if flag == engine.FlagNone {
				if err := t.validCode(code); err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
			} else if code == "" {
				return nil, fmt.Errorf("line %d: empty code", lineNo)
			}
			d.entries = append(d.entries, entry{code: code, word: word, index: perCode[code], flag: flag})
			perCode[code]++
		default:
			// Rule and other sections are engine metadata this engine ignores.
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if section == "" && len(d.meta) > 0 {
		return nil, fmt.Errorf("missing [Data] section")
	}

	slices.SortStableFunc(d.entries, compareEntries)
	return d, nil
}
