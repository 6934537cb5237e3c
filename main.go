// NN-512 (https://NN-512.com)
//
// Copyright (C) 2019 [
//     37ef ced3 3727 60b4
//     3c29 f9c6 dc30 d518
//     f4f3 4106 6964 cab4
//     a06f c1a3 83fd 090e
// ]
//
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in
//    the documentation and/or other materials provided with the
//    distribution.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS
// "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT
// LIMITED TO, THE IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR
// A PARTICULAR PURPOSE ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT
// HOLDER OR CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT
// LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR SERVICES; LOSS OF USE,
// DATA, OR PROFITS; OR BUSINESS INTERRUPTION) HOWEVER CAUSED AND ON ANY
// THEORY OF LIABILITY, WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT
// (INCLUDING NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH DAMAGE.

package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"NNC/internal/compile"
	"NNC/internal/doc"
	"NNC/internal/example"
	"NNC/internal/version"
)

const (
	newline = "\n"
	space   = " "
	indent  = space + space + space + space
	usage   = newline + "Usage:" + newline + newline + indent + "nnc" + space
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func readNet(from string) ([]byte, error) {
	if from == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(from)
}

func cmdCompile() error {
	if len(os.Args) == 4 {
		text, err := readNet(os.Args[2])
		if err != nil {
			return err
		}
		result, err := compile.Compile(text)
		if err != nil {
			return err
		}
		logger.Info("compiled",
			"net", result.Name,
			"strategy", result.Build.Strategy,
			"data_type", result.Build.DataType,
		)
		files, err := result.WriteFiles(os.Args[3])
		if err != nil {
			return err
		}
		for _, f := range files {
			logger.Info("wrote", "path", filepath.Join(os.Args[3], f.Name), "bytes", len(f.Data))
		}
		return nil
	}
	return errors.New(usage +
		os.Args[1] + space + "NET" + space + "DIR" + newline +
		newline +
		"The NET argument specifies an input file that contains a" + newline +
		"YAML (or JSON) description of a neural net. - means stdin." + newline +
		newline +
		indent + "Example: mlp.yaml" + newline +
		indent + "Example: ../nets/lenet.json" + newline +
		indent + "Example: -" + newline +
		newline +
		"The DIR argument specifies an output directory where the" + newline +
		"generated C99 files, the flow facts, and a makefile will be" + newline +
		"written." + newline +
		newline +
		indent + "Example: ." + newline +
		indent + "Example: ../src" + newline +
		indent + "Example: /tmp/" + newline)
}

func cmdDoc() error {
	if len(os.Args) > 2 {
		return errors.New(usage + os.Args[1] + newline)
	}
	_, err := os.Stdout.Write(doc.Bytes())
	return err
}

func cmdExample() error {
	if len(os.Args) == 3 {
		if gen := example.Generate(os.Args[2]); gen != nil {
			_, err := os.Stdout.Write(gen)
			return err
		}
	}
	list := strings.Join(example.Names(), newline+indent)
	return errors.New(usage +
		os.Args[1] + space + "NAME" + newline +
		newline +
		"The NAME argument can be:" + newline +
		newline +
		indent + list + newline)
}

func cmdVersion() error {
	if len(os.Args) > 2 {
		return errors.New(usage + os.Args[1] + newline)
	}
	_, err := os.Stdout.WriteString(
		strconv.Itoa(version.Int) + newline,
	)
	return err
}

var cmds = [...]struct {
	name string
	hint string
	call func() error
}{
	{"compile", "Read a neural net description and write C99.", cmdCompile},
	{"doc", "Write documentation for the description format to stdout.", cmdDoc},
	{"example", "Write the description of an example neural net to stdout.", cmdExample},
	{"version", "Write the version number of this program to stdout.", cmdVersion},
}

func run() error {
	if len(os.Args) >= 2 {
		arg := os.Args[1]
		for i := range &cmds {
			if cmds[i].name == arg {
				return cmds[i].call()
			}
		}
	}
	longest := 0
	for i := range &cmds {
		if alt := len(cmds[i].name); longest < alt {
			longest = alt
		}
	}
	tot := longest + len(indent)
	var list string
	for i := range &cmds {
		name, hint := cmds[i].name, cmds[i].hint
		align := strings.Repeat(space, tot-len(name))
		list += indent + name + align + hint + newline
	}
	return errors.New(usage +
		"COMMAND" + newline +
		newline +
		"The COMMAND argument can be:" + newline +
		newline +
		list)
}

func main() {
	if err := run(); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + newline)
		os.Exit(1)
	}
	os.Exit(0)
}
