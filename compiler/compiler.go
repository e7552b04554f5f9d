package compiler

import (
	"context"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"tinygo.org/x/go-llvm"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/jit/compiler/ir"
	"github.com/slowlang/jit/compiler/jit"
)

type (
	// Config is the file-level compilation setup.
	// Zero levels disable the optimization pass pipeline, not code generation optimizations.
	Config struct {
		OptLevel      int    `toml:"opt_level"`
		SizeLevel     int    `toml:"size_level"`
		CodegenLevel  int    `toml:"codegen_level"`
		CodeModel     string `toml:"code_model"`
		FastISel      bool   `toml:"fast_isel"`
		FramePointers bool   `toml:"frame_pointers"`
		Verify        bool   `toml:"verify"`
	}
)

var codeModels = map[string]llvm.CodeModel{
	"":        llvm.CodeModelJITDefault,
	"default": llvm.CodeModelJITDefault,
	"small":   llvm.CodeModelSmall,
	"kernel":  llvm.CodeModelKernel,
	"medium":  llvm.CodeModelMedium,
	"large":   llvm.CodeModelLarge,
}

func DefaultConfig() Config {
	return Config{
		CodegenLevel: jit.DefaultOptLevel,
		Verify:       true,
	}
}

// LoadConfig overlays the TOML file at path onto cfg.
// Keys the file does not define keep their values.
func LoadConfig(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrap(err, "decode %v", path)
	}

	if keys := meta.Undecoded(); len(keys) != 0 {
		return errors.New("%v: unknown keys: %v", path, keys)
	}

	if _, err := ParseCodeModel(cfg.CodeModel); err != nil {
		return errors.Wrap(err, "%v", path)
	}

	return nil
}

func ParseCodeModel(s string) (llvm.CodeModel, error) {
	cm, ok := codeModels[strings.ToLower(s)]
	if !ok {
		return 0, errors.New("unknown code model: %q", s)
	}

	return cm, nil
}

// Options translates cfg into engine options.
func (cfg Config) Options() ([]jit.Option, error) {
	cm, err := ParseCodeModel(cfg.CodeModel)
	if err != nil {
		return nil, err
	}

	return []jit.Option{
		jit.WithOptLevel(cfg.CodegenLevel),
		jit.WithCodeModel(cm),
		jit.WithFastISel(cfg.FastISel),
		jit.WithFramePointers(cfg.FramePointers),
	}, nil
}

// ReadFile loads the whole file at path.
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", path)

	return data, nil
}

// LoadModule parses the bitcode file at path into c.
func LoadModule(ctx context.Context, c *ir.Context, path string) (*ir.Module, error) {
	data, err := ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}

	return c.LoadBitcode(ctx, path, data)
}

// LoadFile builds a compiler over the bitcode file at path.
// The module is verified and optimized according to cfg before the engine takes it.
func LoadFile(ctx context.Context, path string, cfg Config) (_ *jit.Compiler, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: load file", "path", path)
	defer tr.Finish("err", &err)

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}

	c := ir.NewContext()

	m, err := prepare(ctx, c, path, cfg)
	if err != nil {
		c.Dispose()
		return nil, err
	}

	return jit.FromModule(ctx, m, opts...)
}

// LinkFiles loads every bitcode file into one module named name.
// The caller owns the result and its context.
func LinkFiles(ctx context.Context, name string, paths []string, cfg Config) (_ *ir.Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compiler: link files", "name", name, "files", len(paths))
	defer tr.Finish("err", &err)

	c := ir.NewContext()

	defer func() {
		if err != nil {
			c.Dispose()
		}
	}()

	dst := c.NewModule(name)

	for _, p := range paths {
		src, err := LoadModule(ctx, c, p)
		if err != nil {
			return nil, err
		}

		err = dst.LinkDestroy(ctx, src)
		if err != nil {
			return nil, err
		}
	}

	err = finish(ctx, dst, cfg)
	if err != nil {
		return nil, err
	}

	return dst, nil
}

func prepare(ctx context.Context, c *ir.Context, path string, cfg Config) (*ir.Module, error) {
	m, err := LoadModule(ctx, c, path)
	if err != nil {
		return nil, err
	}

	err = finish(ctx, m, cfg)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func finish(ctx context.Context, m *ir.Module, cfg Config) error {
	if cfg.Verify {
		if err := m.Verify(); err != nil {
			return err
		}
	}

	if cfg.OptLevel == 0 && cfg.SizeLevel == 0 {
		return nil
	}

	return m.Optimize(ctx, cfg.OptLevel, cfg.SizeLevel)
}
