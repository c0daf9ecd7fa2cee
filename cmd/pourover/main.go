// Package main provides the CLI entrypoint for pourover.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/pourover/internal/brew"
	"github.com/verte-zerg/pourover/internal/config"
	"github.com/verte-zerg/pourover/internal/model"
	"github.com/verte-zerg/pourover/internal/stats"
	"github.com/verte-zerg/pourover/internal/store"
	"github.com/verte-zerg/pourover/internal/tui"
	"github.com/verte-zerg/pourover/internal/wakelock"
)

const (
	defaultWakeLock = true
	defaultJournal  = true
	defaultLast     = 20
)

const debugEnv = "POUROVER_DEBUG"

var (
	brewBeans    int
	brewWakeLock bool
	brewJournal  bool

	scheduleBeans  int
	scheduleFormat string

	historyLast int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pourover",
		Short:         "Guided pour-over brew timer",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runBrewCmd,
	}

	rootCmd.Flags().IntVar(&brewBeans, "beans", brew.DefaultBeans, "bean amount in grams (15 or 20)")
	rootCmd.Flags().BoolVar(&brewWakeLock, "wake-lock", defaultWakeLock, "keep the display awake while brewing")
	rootCmd.Flags().BoolVar(&brewJournal, "journal", defaultJournal, "record brews in the journal")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func runBrewCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "beans", &brewBeans, fileCfg.Brew.Beans)
	applyBoolConfig(cmd, "wake-lock", &brewWakeLock, fileCfg.Brew.WakeLock)
	applyBoolConfig(cmd, "journal", &brewJournal, fileCfg.Brew.Journal)

	cfg := model.Config{
		Beans:    brewBeans,
		WakeLock: brewWakeLock,
		Journal:  brewJournal,
	}
	preset, err := validateConfig(cfg)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the timer needs an interactive terminal (try: pourover schedule)")
	}

	logf, logFile, err := openDebugLog()
	if err != nil {
		return err
	}

	opts := tui.Options{Logf: logf}
	var st *store.Store
	if cfg.Journal {
		st, err = store.Open(config.DefaultDBPath())
		if err != nil {
			return multierr.Append(fmt.Errorf("failed to open db: %w", err), closeFile(logFile))
		}
		opts.Journal = st
	}

	var locker wakelock.Locker
	if cfg.WakeLock {
		locker = wakelock.Detect()
	}
	driver := brew.NewDriver(brew.NewTimer(preset), brew.DriverOptions{
		Locker: locker,
		Logf:   logf,
	})

	program := tea.NewProgram(tui.NewModel(driver, opts), tea.WithAltScreen())
	var errs error
	if _, err := program.Run(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to run TUI: %w", err))
	}
	driver.Close()
	if st != nil {
		if err := st.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close db: %w", err))
		}
	}
	return multierr.Append(errs, closeFile(logFile))
}

// openDebugLog routes log output to the file named by POUROVER_DEBUG while
// the TUI owns the terminal. Without it, log output is dropped.
func openDebugLog() (func(format string, args ...any), *os.File, error) {
	path := strings.TrimSpace(os.Getenv(debugEnv))
	if path == "" {
		return func(string, ...any) {}, nil, nil
	}
	f, err := tea.LogToFile(path, "pourover")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	return log.Printf, f, nil
}

func closeFile(f *os.File) error {
	if f == nil {
		return nil
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close debug log: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the brew steps for a bean amount",
		Args:  cobra.NoArgs,
		RunE:  runScheduleCmd,
	}
	cmd.Flags().IntVar(&scheduleBeans, "beans", brew.DefaultBeans, "bean amount in grams (15 or 20)")
	cmd.Flags().StringVar(&scheduleFormat, "format", "text", "output format (text or yaml)")
	return cmd
}

func runScheduleCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "beans", &scheduleBeans, fileCfg.Brew.Beans)
	preset, err := validateConfig(model.Config{Beans: scheduleBeans})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(strings.TrimSpace(scheduleFormat)) {
	case "text":
		err = writeScheduleText(out, preset, terminalWidth(out))
	case "yaml":
		err = writeScheduleYAML(out, preset)
	default:
		return fmt.Errorf("--format must be text or yaml")
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

type scheduleDoc struct {
	Beans int         `yaml:"beans"`
	Water int         `yaml:"water"`
	Pours []int       `yaml:"pours"`
	Steps []brew.Step `yaml:"steps"`
}

func writeScheduleYAML(w io.Writer, preset brew.Preset) error {
	doc := scheduleDoc{
		Beans: preset.BeansGrams,
		Water: preset.TotalWater(),
		Pours: preset.Pours[:],
		Steps: brew.Steps(preset),
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func writeScheduleText(w io.Writer, preset brew.Preset, width int) error {
	if _, err := fmt.Fprintln(w, preset.String()); err != nil {
		return err
	}
	headers := []string{"#", "At", "Action", "Step", "Instruction"}
	rows := make([][]string, 0, 6)
	for i, step := range brew.Steps(preset) {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			brew.FormatTime(step.OffsetSeconds),
			step.Action,
			step.Title,
			step.Description,
		})
	}
	for _, line := range stats.FormatTable(headers, rows, map[int]bool{0: true, 1: true}) {
		if width > 0 {
			line = runewidth.Truncate(line, width, "…")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// terminalWidth returns the column count when w is a terminal, otherwise 0.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded brews",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().IntVar(&historyLast, "last", defaultLast, "limit to last N brews (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	if historyLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	brews, err := st.ListBrews(context.Background(), model.HistoryConfig{Last: historyLast})
	if err != nil {
		return fmt.Errorf("failed to load brews: %w", err)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderHistory(out, brews); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderSummary(out, brews); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# pourover configuration
# Uncomment a value to enable it. CLI flags override config values.

[brew]
# beans = %d              # Bean amount in grams (15 or 20)
# wake-lock = %t        # Keep the display awake while brewing
# journal = %t          # Record brews in the journal
`,
		brew.DefaultBeans,
		defaultWakeLock,
		defaultJournal,
	)
}

func validateConfig(cfg model.Config) (brew.Preset, error) {
	preset, ok := brew.PresetFor(cfg.Beans)
	if !ok {
		amounts := make([]string, 0, 2)
		for _, p := range brew.Presets() {
			amounts = append(amounts, fmt.Sprintf("%d", p.BeansGrams))
		}
		return brew.Preset{}, fmt.Errorf("--beans must be one of %s", strings.Join(amounts, ", "))
	}
	return preset, nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
