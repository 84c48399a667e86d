package trainer

import (
	"github.com/sourcegraph/conc/panics"
	"github.com/sugarme/tokenizer/pretrained"
)

// CheckLoadable loads a saved tokenizer.json with sugarme/tokenizer and
// reports whether it could be built.
func CheckLoadable(path string) error {
	var (
		err error
		pc  panics.Catcher
	)
	pc.Try(func() { _, err = pretrained.FromFile(path) })
	if r := pc.Recovered(); r != nil {
		return r.AsError()
	}
	return err
}
