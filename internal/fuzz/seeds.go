package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
)

const maxSeedBytes = 64 << 10

// builtinOutputSeeds are compiler output fragments that exercise every parser
// state, including the unhappy ones.
var builtinOutputSeeds = []string{
	"",
	"warning: unused\n",
	"<unknown>:0: error: no such file\n",
	"27\n{\"name\":\"compile\",\"x\":1}\n",
	"56\n{\"name\":\"compile\",\"kind\":\"began\",\"inputs\":[\"a.swift\"]}\n",
	"40\n{\"name\":\"compile\",\"kind\":\"began\",\"inputs\":[]}\n",
	"400\n{\"name\":\"compile\"}\n",
	"-1\n",
	"99999999999999999999\n",
	"clang: command not found\nmore\n",
	"12\n{\n\"a\":\n1}\n\n",
}

// corpusSeeds returns builtin seeds plus every file under testdata.
func corpusSeeds() [][]byte {
	seeds := make([][]byte, 0, len(builtinOutputSeeds)+4)
	for _, s := range builtinOutputSeeds {
		seeds = append(seeds, []byte(s))
	}
	_ = filepath.WalkDir("testdata", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		// #nosec G304 -- path comes from the package testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		seeds = append(seeds, clampSeed(src))
		return nil
	})
	return seeds
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
