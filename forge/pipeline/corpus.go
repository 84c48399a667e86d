package pipeline

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/ZanzyTHEbar/tokenizer-forge/forge/common"

	"github.com/spf13/afero"
)

var errNotUTF8 = errors.New("file is not valid UTF-8")

// ReadCorpus returns every line of the corpus file, CRLF or LF terminated.
// A nil fs means the OS filesystem.
func ReadCorpus(fs afero.Fs, path string) ([]string, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, common.FileRead(path, err)
	}
	if !utf8.Valid(data) {
		return nil, common.FileRead(path, errNotUTF8)
	}

	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return []string{}, nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines, nil
}
