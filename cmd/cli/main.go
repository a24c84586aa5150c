package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"coffee-eshop-go/internal/config"
	"coffee-eshop-go/internal/scenario"
	"coffee-eshop-go/internal/shopclient"
)

type model struct {
	runner   *scenario.Runner
	baseURL  string
	selected int
	status   string
	results  []scenario.Result
	busy     bool
}

func initialModel(runner *scenario.Runner, baseURL string) model {
	return model{runner: runner, baseURL: baseURL, status: "Ready"}
}

func (m model) Init() tea.Cmd {
	return nil
}

// the last entry runs every scenario in order
func (m model) entries() int { return len(scenario.All) + 1 }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < m.entries()-1 {
				m.selected++
			}
		case "enter":
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Running..."
			return m, m.runCmd(m.selected)
		}
	case scenarioResults:
		m.busy = false
		m.results = msg
		m.status = summary(msg)
	}
	return m, nil
}

func (m model) View() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "coffee-eshop checkout scenarios @ %s\n\n", m.baseURL)
	for i, s := range scenario.All {
		fmt.Fprintf(b, " %s %s - %s\n", marker(i == m.selected), s.Name, s.Description)
	}
	fmt.Fprintf(b, " %s all - run every scenario\n", marker(m.selected == len(scenario.All)))
	fmt.Fprintf(b, "\nStatus: %s\n", m.status)
	for _, r := range m.results {
		fmt.Fprintf(b, "  %s %s: %s\n", verdict(r.Passed), r.Name, r.Detail)
	}
	fmt.Fprintln(b, "\nControls: up/down select, enter to run, q to quit")
	return b.String()
}

type scenarioResults []scenario.Result

func (m model) runCmd(selected int) tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if selected >= len(scenario.All) {
			return scenarioResults(runner.RunAll(ctx))
		}
		return scenarioResults{runner.Run(ctx, scenario.All[selected])}
	}
}

func marker(on bool) string {
	if on {
		return ">"
	}
	return " "
}

func verdict(passed bool) string {
	if passed {
		return "PASS"
	}
	return "FAIL"
}

func summary(results []scenario.Result) string {
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	return fmt.Sprintf("%d/%d passed", passed, len(results))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	baseURL := flag.String("base-url", cfg.OrderBaseURL, "order-service base URL")
	runName := flag.String("run", "", "run one scenario (A-E) or all, without the UI")
	buyer := flag.Int64("buyer", 2, "client id placing the checked orders")
	rival := flag.Int64("rival", 3, "client id competing for stock")
	flag.Parse()

	runner := scenario.NewRunner(shopclient.New(*baseURL, cfg.RequestTimeout*2), *buyer, *rival)

	if *runName != "" {
		os.Exit(runHeadless(runner, *runName))
	}

	p := tea.NewProgram(initialModel(runner, *baseURL))
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func runHeadless(runner *scenario.Runner, name string) int {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var results []scenario.Result
	if strings.EqualFold(name, "all") {
		results = runner.RunAll(ctx)
	} else {
		s, ok := scenario.Find(strings.ToUpper(name))
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown scenario %q\n", name)
			return 2
		}
		results = []scenario.Result{runner.Run(ctx, s)}
	}

	code := 0
	for _, r := range results {
		fmt.Printf("%s %s: %s\n", verdict(r.Passed), r.Name, r.Detail)
		if !r.Passed {
			code = 1
		}
	}
	return code
}
