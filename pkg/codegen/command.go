package codegen

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/platinummonkey/dockgen/pkg/observability"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// CommandGenerator runs the generator in a separate process so it shares
// no state with the caller. The child receives
//
//	<Path> <Args...> --config <file> --result <file>
//
// and must write a YAML encoded Result to the result file.
type CommandGenerator struct {
	Path string
	Args []string
	Env  []string

	log logrus.FieldLogger
}

// NewCommandGenerator runs path with args. An empty path re-executes the
// current binary with the "codegen" subcommand.
func NewCommandGenerator(path string, args []string, log logrus.FieldLogger) (*CommandGenerator, error) {
	if path == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate dockgen binary: %w", err)
		}
		path = self
		args = []string{"codegen"}
	}
	return &CommandGenerator{
		Path: path,
		Args: args,
		log:  observability.OrDefault(log),
	}, nil
}

func (g *CommandGenerator) Generate(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "dockgen-codegen-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer os.RemoveAll(workDir)

	configPath := filepath.Join(workDir, "config.yaml")
	resultPath := filepath.Join(workDir, "result.yaml")
	if err := WriteConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	args := append(append([]string{}, g.Args...), "--config", configPath, "--result", resultPath)
	cmd := exec.CommandContext(ctx, g.Path, args...)
	cmd.Env = append(os.Environ(), g.Env...)

	log := g.log.WithField("command", g.Path)
	stdout := log.WriterLevel(logrus.InfoLevel)
	stderr := log.WriterLevel(logrus.WarnLevel)
	defer stdout.Close()
	defer stderr.Close()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Debug("Starting generator process")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: generator process: %v", ErrGenerationFailed, err)
	}

	data, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, fmt.Errorf("%w: generator produced no result: %v", ErrGenerationFailed, err)
	}
	var result Result
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: invalid generator result: %v", ErrGenerationFailed, err)
	}
	return &result, nil
}

// WriteResult encodes r for a parent CommandGenerator
func WriteResult(path string, r *Result) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var _ Generator = (*CommandGenerator)(nil)
