package shell

import (
	"slices"

	"github.com/mattn/go-runewidth"

	"tabledict/internal/tabledict"
)

// Command is one catalog entry. Any unambiguous prefix of Name invokes it.
type Command struct {
	Name string
	Run  func(s *Shell, args []string) Outcome
	Help string
}

var commands = []Command{
	{"find", (*Shell).doFind, "show code for word; only one is shown"},
	{"match", (*Shell).doMatch, "show entries that match each code"},

	{"insert", (*Shell).doInsert, "insert a pair of (code, word)"},
	{"delete", (*Shell).doDelete, "delete a pair of (code, word)"},
	{"save", (*Shell).doSave, "save the user dict"},

	{"stats", (*Shell).doStats, "show statistics on the tabledict"},
	{"help", (*Shell).doHelp, "show help"},
	{"quit", (*Shell).doQuit, "quit this program"},
}

// Commands returns a copy of the catalog.
func Commands() []Command {
	return slices.Clone(commands)
}

func (s *Shell) doFind(args []string) Outcome {
	if len(args) == 0 {
		s.printf("find: arguments needed\n")
		return Continue
	}
	for _, w := range args {
		code, err := s.dict.ReverseLookup(w, tabledict.FlagNone)
		switch {
		case err != nil:
			s.printf("Error: %v\n", err)
		case code == "":
			s.printf("%s not found\n", w)
		default:
			s.printf("%s %s\n", code, w)
		}
	}
	return Continue
}

func (s *Shell) doMatch(args []string) Outcome {
	if len(args) == 0 {
		s.printf("match: arguments needed\n")
		return Continue
	}
	for _, code := range args {
		for _, e := range s.dict.MatchWords(code, tabledict.Exact) {
			s.printf("%s\n", e)
		}
	}
	return Continue
}

func (s *Shell) doInsert(args []string) Outcome {
	if len(args) != 2 {
		s.printf("insert takes two arguments: code and word\n")
		return Continue
	}
	if !s.dict.Insert(args[0], args[1]) {
		s.printf("insert: %s %s not applied\n", args[0], args[1])
	}
	return Continue
}

func (s *Shell) doDelete(args []string) Outcome {
	if len(args) != 2 {
		s.printf("delete takes two arguments: code and word\n")
		return Continue
	}
	if !s.dict.Delete(args[0], args[1]) {
		s.printf("delete: %s %s not found\n", args[0], args[1])
	}
	return Continue
}

func (s *Shell) doSave([]string) Outcome {
	if err := s.dict.Save(); err != nil {
		s.log.Warn("save failed", "error", err)
		s.printf("save failed: %v\n", err)
	}
	return Continue
}

func (s *Shell) doStats([]string) Outcome {
	s.dict.Stat()
	return Continue
}

func (s *Shell) doHelp([]string) Outcome {
	for _, c := range s.commands {
		s.printf("%s %s\n", runewidth.FillRight(c.Name, 10), c.Help)
	}
	return Continue
}

func (s *Shell) doQuit([]string) Outcome {
	return Exit
}
