package tableengine

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabledict/internal/engine"
)

const sampleDict = `KeyCode=abcdefghijklmnopqrstuvwxyz
Length=4
Pinyin=@
[Rule]
e2=p11+p12+p21+p22
[Data]
wq 你
wq 佤
wqa 你们
bd 好
@ni 你
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func cpath(p string) []byte { return append([]byte(p), 0) }

type hit struct {
	code, word string
	index      uint32
	flag       engine.PhraseFlag
}

func collect(e *Engine, h engine.Handle, key string, mode engine.MatchMode) ([]hit, bool) {
	var hits []hit
	found := e.Match(h, []byte(key), mode, func(_ uintptr, code, word engine.View, index uint32, flag engine.PhraseFlag) {
		hits = append(hits, hit{code.String(), word.String(), index, flag})
	}, 0)
	return hits, found
}

func newLoaded(t *testing.T) (*Engine, engine.Handle) {
	t.Helper()
	var out bytes.Buffer
	e := New(engine.Options{StatOutput: &out})
	h := e.Create()
	require.NotZero(t, h)

	var errs engine.Sink
	e.LoadMain(h, cpath(writeFile(t, "main.txt", sampleDict)), &errs)
	require.True(t, errs.Empty(), errs.String())
	t.Cleanup(func() { e.Destroy(h) })
	return e, h
}

func TestCreateDestroy(t *testing.T) {
	e := New(engine.Options{})
	h1 := e.Create()
	h2 := e.Create()
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 2, e.Live())

	e.Destroy(h1)
	e.Destroy(h1) // unknown now; logged, no panic
	assert.Equal(t, 1, e.Live())
	e.Destroy(h2)
	assert.Zero(t, e.Live())
}

func TestMatchExactAndPrefix(t *testing.T) {
	e, h := newLoaded(t)

	hits, found := collect(e, h, "wq", engine.MatchExact)
	assert.True(t, found)
	assert.Equal(t, []hit{
		{"wq", "你", 0, engine.FlagNone},
		{"wq", "佤", 1, engine.FlagNone},
	}, hits)

	hits, found = collect(e, h, "wq", engine.MatchPrefix)
	assert.True(t, found)
	assert.Len(t, hits, 3)
	assert.Equal(t, "你们", hits[2].word)

	hits, found = collect(e, h, "zz", engine.MatchExact)
	assert.False(t, found)
	assert.Empty(t, hits)
}

func TestPinyinMarker(t *testing.T) {
	e, h := newLoaded(t)
	hits, _ := collect(e, h, "ni", engine.MatchExact)
	require.Len(t, hits, 1)
	assert.Equal(t, engine.FlagPinyin, hits[0].flag)

	var result, errs engine.Sink
	e.ReverseLookup(h, []byte("你"), engine.FlagPinyin, &result, &errs)
	assert.True(t, errs.Empty())
	assert.Equal(t, "ni", result.String())
}

func TestViewsShareScratch(t *testing.T) {
	e, h := newLoaded(t)

	var kept []engine.View
	e.Match(h, []byte("wq"), engine.MatchExact, func(_ uintptr, _, word engine.View, _ uint32, _ engine.PhraseFlag) {
		kept = append(kept, word)
	}, 0)
	require.Len(t, kept, 2)
	// The first view was overwritten by the second entry.
	assert.Equal(t, kept[1].String(), kept[0].String())
}

func TestMatchPassesContext(t *testing.T) {
	e, h := newLoaded(t)
	var seen []uintptr
	e.Match(h, []byte("bd"), engine.MatchExact, func(ctx uintptr, _, _ engine.View, _ uint32, _ engine.PhraseFlag) {
		seen = append(seen, ctx)
	}, 77)
	assert.Equal(t, []uintptr{77}, seen)
}

func TestReverseLookup(t *testing.T) {
	e, h := newLoaded(t)

	tests := []struct {
		name    string
		word    string
		flag    engine.PhraseFlag
		want    string
		wantErr string
	}{
		{name: "main", word: "你", flag: engine.FlagNone, want: "wq"},
		{name: "absent", word: "不", flag: engine.FlagNone, want: ""},
		{name: "user only", word: "你", flag: engine.FlagUser, want: ""},
		{name: "empty", word: "", flag: engine.FlagNone, wantErr: "empty word"},
		{name: "invalid flag", word: "你", flag: engine.FlagInvalid, wantErr: "cannot look up"},
		{name: "zero flag", word: "你", flag: 0, wantErr: "cannot look up"},
	}
	var result, errs engine.Sink
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result.Reset()
			errs.Reset()
			e.ReverseLookup(h, []byte(tt.word), tt.flag, &result, &errs)
			if tt.wantErr != "" {
				assert.Contains(t, errs.String(), tt.wantErr)
				return
			}
			assert.True(t, errs.Empty(), errs.String())
			assert.Equal(t, tt.want, result.String())
		})
	}
}

func TestInsertDelete(t *testing.T) {
	e, h := newLoaded(t)

	assert.True(t, e.Insert(h, []byte("wq"), []byte("好"), engine.FlagUser))
	assert.False(t, e.Insert(h, []byte("wq"), []byte("好"), engine.FlagUser), "duplicate")
	assert.False(t, e.Insert(h, []byte("wq"), []byte("你"), engine.FlagUser), "duplicate of main entry")
	assert.False(t, e.Insert(h, []byte("WQ"), []byte("好"), engine.FlagUser), "outside KeyCode")
	assert.False(t, e.Insert(h, []byte("abcde"), []byte("好"), engine.FlagUser), "too long")
	assert.False(t, e.Insert(h, []byte("wq"), []byte("x"), engine.FlagNone), "flag None")

	hits, _ := collect(e, h, "wq", engine.MatchExact)
	require.Len(t, hits, 3)
	assert.Equal(t, hit{"wq", "好", 0, engine.FlagUser}, hits[2])

	assert.True(t, e.Delete(h, []byte("wq"), []byte("好")))
	assert.False(t, e.Delete(h, []byte("wq"), []byte("好")))

	// Main entries are masked rather than removed.
	assert.True(t, e.Delete(h, []byte("wq"), []byte("你")))
	hits, _ = collect(e, h, "wq", engine.MatchExact)
	assert.Equal(t, []hit{{"wq", "佤", 1, engine.FlagNone}}, hits)

	var result, errs engine.Sink
	e.ReverseLookup(h, []byte("你"), engine.FlagNone, &result, &errs)
	assert.Equal(t, "ni", result.String(), "masked main entry skipped, pinyin entry remains")

	// Re-inserting lifts the mask.
	assert.True(t, e.Insert(h, []byte("wq"), []byte("你"), engine.FlagUser))
	hits, _ = collect(e, h, "wq", engine.MatchExact)
	assert.Len(t, hits, 2)
}

func TestUserDictRoundTrip(t *testing.T) {
	e, h := newLoaded(t)
	userPath := filepath.Join(t.TempDir(), "nested", "user.dict")

	var errs engine.Sink
	e.LoadUser(h, cpath(userPath), &errs)
	require.True(t, errs.Empty(), "missing user dict is an empty overlay: %s", errs.String())

	require.True(t, e.Insert(h, []byte("bd"), []byte("好的"), engine.FlagUser))
	require.True(t, e.Delete(h, []byte("wq"), []byte("佤")))
	e.SaveUser(h, cpath(userPath), &errs)
	require.True(t, errs.Empty(), errs.String())
	_, err := os.Stat(userPath + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	h2 := e.Create()
	defer e.Destroy(h2)
	e.LoadMain(h2, cpath(writeFile(t, "main.txt", sampleDict)), &errs)
	require.True(t, errs.Empty())
	e.LoadUser(h2, cpath(userPath), &errs)
	require.True(t, errs.Empty(), errs.String())

	hits, _ := collect(e, h2, "bd", engine.MatchExact)
	assert.Equal(t, []hit{{"bd", "好", 0, engine.FlagNone}, {"bd", "好的", 0, engine.FlagUser}}, hits)
	hits, _ = collect(e, h2, "wq", engine.MatchExact)
	assert.Equal(t, []hit{{"wq", "你", 0, engine.FlagNone}}, hits)

	// New user entries continue the index sequence.
	require.True(t, e.Insert(h2, []byte("bd"), []byte("好人"), engine.FlagUser))
	hits, _ = collect(e, h2, "bd", engine.MatchExact)
	require.Len(t, hits, 3)
	assert.Equal(t, uint32(1), hits[2].index)
}

func TestLoadErrors(t *testing.T) {
	e := New(engine.Options{})
	h := e.Create()
	defer e.Destroy(h)

	var errs engine.Sink
	e.LoadMain(h, cpath(filepath.Join(t.TempDir(), "missing.txt")), &errs)
	assert.Contains(t, errs.String(), "open main dictionary")

	errs.Reset()
	e.LoadMain(h, []byte("no-terminator"), &errs)
	assert.Contains(t, errs.String(), "NUL-terminated")

	errs.Reset()
	e.LoadMain(h, cpath(writeFile(t, "bad.txt", "KeyCode=abc\n[Data]\nabd 字\n")), &errs)
	assert.Contains(t, errs.String(), "line 3")

	errs.Reset()
	e.LoadUser(h, cpath(writeFile(t, "user.dict", "not a database at all, just text")), &errs)
	assert.False(t, errs.Empty())

	errs.Reset()
	e.LoadMain(engine.Handle(999), cpath("x"), &errs)
	assert.Equal(t, "invalid handle", errs.String())
}

func TestStat(t *testing.T) {
	var out bytes.Buffer
	e := New(engine.Options{StatOutput: &out})
	h := e.Create()
	defer e.Destroy(h)

	var errs engine.Sink
	e.LoadMain(h, cpath(writeFile(t, "main.txt", sampleDict)), &errs)
	require.True(t, errs.Empty())
	e.Insert(h, []byte("ab"), []byte("啊"), engine.FlagUser)
	e.Stat(h)

	s := out.String()
	assert.True(t, strings.Contains(s, "main: 5\n"), s)
	assert.True(t, strings.Contains(s, "user: 1\n"), s)
	assert.True(t, strings.Contains(s, "length: 4\n"), s)
}

func TestUserDictPathNeedsEscaping(t *testing.T) {
	for _, name := range []string{"user#1.dict", "user?x.dict", "user%41.dict", "user dict.dict"} {
		t.Run(name, func(t *testing.T) {
			e, h := newLoaded(t)
			dir := t.TempDir()
			userPath := filepath.Join(dir, name)

			require.True(t, e.Insert(h, []byte("bd"), []byte("好的"), engine.FlagUser))
			var errs engine.Sink
			e.SaveUser(h, cpath(userPath), &errs)
			require.True(t, errs.Empty(), errs.String())

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			var names []string
			for _, de := range entries {
				names = append(names, de.Name())
			}
			assert.ElementsMatch(t, []string{name, name + ".lock"}, names)

			h2 := e.Create()
			defer e.Destroy(h2)
			e.LoadUser(h2, cpath(userPath), &errs)
			require.True(t, errs.Empty(), errs.String())
			hits, _ := collect(e, h2, "bd", engine.MatchExact)
			assert.Equal(t, []hit{{"bd", "好的", 0, engine.FlagUser}}, hits)
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/a%231%3Fb%2541?mode=ro", sqliteDSN("/tmp/a#1?b%41", "mode=ro"))
	assert.Equal(t, "file:/tmp/user.dict", sqliteDSN("/tmp/user.dict", ""))
}
