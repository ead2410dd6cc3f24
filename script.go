package racer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var importRe = regexp.MustCompile(`import\s+.*;`)

// TransformTS transform typescript source to javascript
func TransformTS(source []byte) ([]byte, error) {

	// @todo import support
	jsCode := importRe.ReplaceAllString(string(source), "")
	result := api.Transform(jsCode, api.TransformOptions{
		Loader: api.LoaderTS,
		Target: api.ESNext,
	})

	if len(result.Errors) > 0 {
		errors := []string{}
		for _, err := range result.Errors {
			errors = append(errors, err.Text)
		}
		return nil, fmt.Errorf("transform ts code error: %v", strings.Join(errors, "\n"))
	}

	return result.Code, nil
}
