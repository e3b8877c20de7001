package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsplay/executor"
)

func newEngineCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Manage the QuickJS module used by the quickjs engine",
		Long: `Download and inspect the QuickJS WASI module.

The default goja engine is built in and needs nothing. The quickjs engine
runs snippets inside a QuickJS WebAssembly module under wazero; fetch the
module once with "tsplay engine fetch <url>".`,
	}

	fetch := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download the QuickJS WASI module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEngineFetch(cmd, args[0])
		},
	}
	fetch.Flags().StringP("output", "o", "", "Destination (default: the configured module path)")
	fetch.Flags().String("sha256", "", "Expected SHA-256 of the module")
	fetch.Flags().Bool("force", false, "Download even if the module exists")

	info := &cobra.Command{
		Use:   "info",
		Short: "Show engine configuration and module status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runEngineInfo(cmd)
		},
	}

	cmd.AddCommand(fetch, info)
	return cmd
}

func (a *app) modulePath() string {
	if a.cfg.Engine.QuickJSModule != "" {
		return a.cfg.Engine.QuickJSModule
	}
	return executor.DefaultQuickJSPath()
}

func (a *app) runEngineFetch(cmd *cobra.Command, url string) error {
	output, _ := cmd.Flags().GetString("output")
	want, _ := cmd.Flags().GetString("sha256")
	force, _ := cmd.Flags().GetBool("force")
	if output == "" {
		output = a.modulePath()
	}

	if _, err := os.Stat(output); err == nil && !force {
		fmt.Fprintf(cmd.OutOrStdout(), "Module already present at %s (use --force to replace)\n", output)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Downloading %s...\n", url)
	sum, size, err := download(cmd, url, output, want)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes, sha256 %s)\n", output, size, sum)
	return nil
}

// download writes url to output through a temp file so that a failed or
// mismatched download never leaves a partial module behind.
func download(cmd *cobra.Command, url, output, wantSum string) (string, int64, error) {
	client := &http.Client{Timeout: 5 * time.Minute}
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("download failed: %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return "", 0, fmt.Errorf("create module dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(output), ".qjs-*.wasm")
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("download: %w", err)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if wantSum != "" && !strings.EqualFold(sum, wantSum) {
		return "", 0, fmt.Errorf("checksum mismatch: got %s, want %s", sum, wantSum)
	}
	if err := os.Rename(tmpPath, output); err != nil {
		return "", 0, fmt.Errorf("install module: %w", err)
	}
	return sum, size, nil
}

func (a *app) runEngineInfo(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	path := a.modulePath()

	fmt.Fprintf(out, "engine:         %s\n", a.cfg.Engine.Name)
	fmt.Fprintf(out, "timeout:        %v\n", a.cfg.Engine.Timeout)
	fmt.Fprintf(out, "analyzer:       %s\n", a.cfg.Analyzer.Name)
	fmt.Fprintf(out, "quickjs module: %s\n", path)

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "module status:  missing")
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}
	fmt.Fprintf(out, "module status:  present (%d bytes, sha256 %s)\n", size, hex.EncodeToString(h.Sum(nil)))
	fmt.Fprintf(out, "compile cache:  %s\n", cacheDirOrDefault(a.cfg.Engine.CacheDir))
	return nil
}

func cacheDirOrDefault(dir string) string {
	if dir != "" {
		return dir
	}
	return executor.DefaultCacheDir()
}
