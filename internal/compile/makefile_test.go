package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakefile(t *testing.T) {
	b := &Build{
		Sources:  []string{"mlp.c", "mlp_globals.c"},
		Headers:  []string{"mlp.h"},
		Binary:   "mlp",
		Compiler: "gcc",
		DataType: "float",
		Strategy: "semi",
		InSize:   4,
		OutSize:  3,
	}
	got := string(b.Makefile())
	assert.Contains(t, got, "# inference reads 4 float values and writes 3.\n")
	assert.Contains(t, got, "OBJS = mlp.o mlp_globals.o\n")
	assert.Contains(t, got, "libmlp.a: $(OBJS)\n\tar rcs $@ $(OBJS)\n")
	assert.Contains(t, got, "%.o: %.c mlp.h\n\t$(CC) $(CFLAGS) -c $< -o $@\n")
	assert.Contains(t, got, "CC = gcc\n")
}
