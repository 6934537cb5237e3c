package compile

import (
	"strconv"
	"strings"
)

// Makefile builds the generated sources into an object archive named
// after the network.
func (b *Build) Makefile() []byte {
	var (
		objs = make([]string, len(b.Sources))
		lib  = "lib" + b.Binary + ".a"
	)
	for i, src := range b.Sources {
		objs[i] = strings.TrimSuffix(src, ".c") + ".o"
	}
	lines := []string{
		"# inference reads " + strconv.Itoa(b.InSize) + " " + b.DataType +
			" values and writes " + strconv.Itoa(b.OutSize) + ".",
		"# Strategy: " + b.Strategy + ".",
		"",
		"CC = " + b.Compiler,
		"CFLAGS = -std=c99 -O2",
		"OBJS = " + strings.Join(objs, " "),
		"",
		lib + ": $(OBJS)",
		"\tar rcs $@ $(OBJS)",
		"",
		"%.o: %.c " + strings.Join(b.Headers, " "),
		"\t$(CC) $(CFLAGS) -c $< -o $@",
		"",
		"clean:",
		"\trm -f " + lib + " $(OBJS)",
		"",
		".PHONY: clean",
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}
