package orchestrator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"

	"stemd/internal/classify"
	"stemd/internal/common/fsutil"
	"stemd/pkg/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// minAudioBytes rejects inputs too small to hold a decodable frame.
const minAudioBytes = 1024

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".flac": true, ".ogg": true,
	".m4a": true, ".aac": true, ".wma": true, ".aiff": true,
}

// validateRequest checks field constraints. Failures are caller errors.
func validateRequest(req types.SeparateRequest) error {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return invalidRequestError{errors.New(strings.Join(msgs, "; "))}
		}
		return invalidRequestError{err}
	}
	return nil
}

// preflight checks the input audio and prepares the output directory before
// any config is resolved. Failures are classified without invoking the
// separator.
func preflight(req types.SeparateRequest) error {
	fi, err := os.Stat(req.Input)
	switch {
	case err != nil:
		return classified(classify.CategoryFileSystem, fmt.Errorf("input audio %s: %w", req.Input, err))
	case fi.IsDir():
		return classified(classify.CategoryFileSystem, &fs.PathError{Op: "open", Path: req.Input, Err: errors.New("is a directory")})
	case fi.Size() == 0:
		return classified(classify.CategoryAudio, fmt.Errorf("input audio %s is empty", req.Input))
	case fi.Size() < minAudioBytes:
		return classified(classify.CategoryAudio, fmt.Errorf("input audio %s is too small (%d bytes)", req.Input, fi.Size()))
	}
	if ext := strings.ToLower(filepath.Ext(req.Input)); !audioExtensions[ext] {
		return classified(classify.CategoryAudio, fmt.Errorf("unsupported format: %s", ext))
	}
	if err := fsutil.EnsureDir(req.OutputDir); err != nil {
		return classified(classify.CategoryFileSystem, fmt.Errorf("output dir: %w", err))
	}
	return nil
}

func classified(c classify.Category, err error) error {
	return &classify.ClassifiedError{Classification: classify.New(c, err)}
}
