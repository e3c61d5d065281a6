package introspect

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/nlpodyssey/gopickle/pickle"
	"github.com/nlpodyssey/gopickle/types"
)

// mapping is the read side of the dict types the unpickler produces.
type mapping interface {
	Get(key interface{}) (interface{}, bool)
}

// legacyMagic is the hex form of the number that opens a pre-zip PyTorch
// checkpoint.
const legacyMagic = "1950a86a20f9469cfc6c"

// introspectCheckpoint reads the hyper_parameters block of a PyTorch
// checkpoint in either the zip or the legacy pickle-stream format. Tensor
// storages are never materialised.
func introspectCheckpoint(path string) (*Partial, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return introspectLegacyCheckpoint(path)
		}
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer zr.Close()

	var pkl *zip.File
	for _, f := range zr.File {
		if f.Name == "data.pkl" || strings.HasSuffix(f.Name, "/data.pkl") {
			pkl = f
			break
		}
	}
	if pkl == nil {
		return nil, nil
	}
	rc, err := pkl.Open()
	if err != nil {
		return nil, fmt.Errorf("open data.pkl: %w", err)
	}
	defer rc.Close()

	u := newUnpickler(rc)
	root, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("unpickle checkpoint: %w", err)
	}
	return hyperParameters(root), nil
}

// introspectLegacyCheckpoint reads a legacy checkpoint: a magic number, a
// protocol version and a sys-info record, each its own pickle, then the saved
// object. Files that do not open with the magic number yield nil.
func introspectLegacyCheckpoint(path string) (*Partial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)

	u := newUnpickler(br)
	magic, err := u.Load()
	if err != nil {
		return nil, nil
	}
	if n, ok := magic.(*big.Int); !ok || n.Text(16) != legacyMagic {
		return nil, nil
	}
	for _, what := range []string{"protocol version", "sys info"} {
		u = newUnpickler(br)
		if _, err := u.Load(); err != nil {
			return nil, fmt.Errorf("unpickle legacy %s: %w", what, err)
		}
	}
	u = newUnpickler(br)
	root, err := u.Load()
	if err != nil {
		return nil, fmt.Errorf("unpickle checkpoint: %w", err)
	}
	return hyperParameters(root), nil
}

func newUnpickler(r io.Reader) pickle.Unpickler {
	u := pickle.NewUnpickler(r)
	u.FindClass = findClass
	u.PersistentLoad = func(interface{}) (interface{}, error) { return &opaqueObject{}, nil }
	return u
}

// hyperParameters maps root["hyper_parameters"] to a Partial, or nil when the
// checkpoint carries none.
func hyperParameters(root interface{}) *Partial {
	top, ok := root.(mapping)
	if !ok {
		return nil
	}
	raw, ok := top.Get("hyper_parameters")
	if !ok {
		return nil
	}
	hp, ok := raw.(mapping)
	if !ok {
		return nil
	}

	p := &Partial{
		Container:    ContainerCheckpoint,
		DimF:         intOr(hp, "dim_f", fallbackDimF),
		DimTExponent: log2Floor(intOr(hp, "dim_t", fallbackDimT)),
		NFFT:         intOr(hp, "n_fft", fallbackNFFT),
	}
	target, _ := lookup(hp, "target_name").(string)
	p.PrimaryStem = StemFromTarget(target)
	return p
}

func lookup(m mapping, key string) interface{} {
	v, ok := m.Get(key)
	if !ok {
		return nil
	}
	return v
}

func intOr(m mapping, key string, def int) int {
	switch v := lookup(m, key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case *big.Int:
		if v.IsInt64() {
			return int(v.Int64())
		}
	}
	return def
}

// findClass resolves every global referenced by the pickle. Dict-like
// containers become real dicts so their items stay readable; anything else is
// an opaque placeholder that absorbs construction and state.
func findClass(module, name string) (interface{}, error) {
	switch name {
	case "AttributeDict", "OrderedDict", "dict":
		return dictClass{}, nil
	}
	return &opaqueClass{module: module, name: name}, nil
}

type dictClass struct{}

func (dictClass) Call(args ...interface{}) (interface{}, error)  { return types.NewDict(), nil }
func (dictClass) PyNew(args ...interface{}) (interface{}, error) { return types.NewDict(), nil }

type opaqueClass struct{ module, name string }

func (c *opaqueClass) Call(args ...interface{}) (interface{}, error) {
	return &opaqueObject{class: c}, nil
}

func (c *opaqueClass) PyNew(args ...interface{}) (interface{}, error) {
	return &opaqueObject{class: c}, nil
}

type opaqueObject struct{ class *opaqueClass }

func (*opaqueObject) PySetState(interface{}) error { return nil }

func (*opaqueObject) Call(args ...interface{}) (interface{}, error) { return &opaqueObject{}, nil }
