// Package classify maps raw execution failures onto a small taxonomy with a
// user-facing message, a remediation hint and a recoverability flag.
// Classification is pure: the same error always yields the same result.
package classify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
)

// Category is the failure family.
type Category string

const (
	CategoryDevice     Category = "Device"
	CategoryFileSystem Category = "FileSystem"
	CategoryModel      Category = "Model"
	CategoryAudio      Category = "Audio"
	CategoryNetwork    Category = "Network"
	CategoryUnknown    Category = "Unknown"
)

// Classification is the result of Classify. Only device failures are
// recoverable, and only by retrying on CPU.
type Classification struct {
	Category    Category
	Message     string
	Suggestion  string
	Recoverable bool
	// Type is the Go type of the original error.
	Type     string
	Original error
}

// rule matches lower-cased error text.
type rule struct {
	keywords    []string
	category    Category
	message     string
	suggestion  string
	recoverable bool
}

var (
	deviceMemory = rule{
		keywords:    []string{"out of memory", "cudnn_status_alloc_failed", "cublas_status_alloc_failed", "hipoutofmemory", "not enough memory"},
		category:    CategoryDevice,
		message:     "GPU memory exhausted while processing",
		suggestion:  "Retry on CPU, close other GPU programs, or lower the segment size / batch size.",
		recoverable: true,
	}
	deviceGeneric = rule{
		keywords:    []string{"cuda", "cudnn", "cublas", "directml", "device-side", "rocm", "hip error", "mps backend", "gpu", "nvidia"},
		category:    CategoryDevice,
		message:     "GPU device error",
		suggestion:  "Retry on CPU, or update the GPU driver and runtime.",
		recoverable: true,
	}
	fileSystem = rule{
		keywords:    []string{"no such file", "not found", "permission denied", "access is denied", "not a directory", "is a directory", "no space left", "disk full", "read-only file system"},
		category:    CategoryFileSystem,
		message:     "File system error",
		suggestion:  "Check that the path exists, is writable and that the disk has free space.",
		recoverable: false,
	}
	network = rule{
		keywords:    []string{"timed out", "timeout", "connection", "ssl", "certificate", "tls", "network", "dns", "unreachable", "name resolution"},
		category:    CategoryNetwork,
		message:     "Network error",
		suggestion:  "Check the internet connection or proxy settings and retry; download the model manually if the problem persists.",
		recoverable: false,
	}
	model = rule{
		keywords:    []string{"invalid model", "model", "checkpoint", "state_dict", "unpickl", "onnx", "corrupt", "weights"},
		category:    CategoryModel,
		message:     "Model could not be loaded",
		suggestion:  "Re-download the model or supply a matching config file.",
		recoverable: false,
	}
	audio = rule{
		keywords:    []string{"unsupported format", "audio", "sample rate", "samplerate", "soundfile", "decode", "codec", "ffmpeg", "wav"},
		category:    CategoryAudio,
		message:     "Audio input could not be processed",
		suggestion:  "Convert the input to WAV or FLAC and check that the file is not damaged.",
		recoverable: false,
	}
	interrupted = rule{
		category:   CategoryUnknown,
		message:    "Operation was canceled or ran out of time",
		suggestion: "Retry with a longer timeout, or check whether the job was stopped on purpose.",
	}
	unknown = rule{
		category:   CategoryUnknown,
		message:    "Unexpected error",
		suggestion: "Re-run with --verbose and report the technical details.",
	}
)

// Classify maps err onto a Classification. A nil error classifies as Unknown.
func Classify(err error) Classification {
	if err == nil {
		return build(unknown, nil)
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Classification
	}
	// Typed errors first: a path naming cuda or gpu is still a path error.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return build(interrupted, err)
	}
	if isFileSystemError(err) {
		return build(fileSystem, err)
	}

	text := strings.ToLower(err.Error())
	if matches(text, deviceMemory.keywords) {
		return build(deviceMemory, err)
	}
	if matches(text, deviceGeneric.keywords) {
		return build(deviceGeneric, err)
	}
	if matches(text, fileSystem.keywords) {
		return build(fileSystem, err)
	}
	if isNetworkError(err) || matches(text, network.keywords) {
		return build(network, err)
	}
	if matches(text, model.keywords) {
		return build(model, err)
	}
	if matches(text, audio.keywords) {
		return build(audio, err)
	}
	return build(unknown, err)
}

// New builds a classification for a failure detected before execution, such
// as a preflight check.
func New(category Category, err error) Classification {
	for _, r := range []rule{deviceMemory, deviceGeneric, fileSystem, network, model, audio} {
		if r.category == category {
			c := build(r, err)
			if err != nil {
				c.Message = err.Error()
			}
			return c
		}
	}
	return build(unknown, err)
}

func build(r rule, err error) Classification {
	c := Classification{
		Category:    r.category,
		Message:     r.message,
		Suggestion:  r.suggestion,
		Recoverable: r.recoverable,
		Original:    err,
	}
	if err != nil {
		c.Type = fmt.Sprintf("%T", err)
	}
	return c
}

func matches(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func isFileSystemError(err error) bool {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrExist) {
		return true
	}
	var pe *fs.PathError
	return errors.As(err, &pe)
}

func isNetworkError(err error) bool {
	var (
		ne  net.Error
		ue  *url.Error
		ua  x509.UnknownAuthorityError
		ci  x509.CertificateInvalidError
		hn  x509.HostnameError
		cve *tls.CertificateVerificationError
	)
	return errors.As(err, &ne) || errors.As(err, &ue) || errors.As(err, &ua) ||
		errors.As(err, &ci) || errors.As(err, &hn) || errors.As(err, &cve)
}
