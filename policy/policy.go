// Package policy implements the opt-in blocklist engine that can be
// wired behind the flow engine's reevaluate_decision extension point
// (see flow.WithPolicy). Rules are expressed as Sigma detection rules
// over each flow's transport tuple and accumulated domain evidence, and
// hot-reload from disk the way this shop's other rule-driven engines
// do.
package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	sigma "github.com/bradleyjkemp/sigma-go"
	"github.com/bradleyjkemp/sigma-go/evaluator"
	"github.com/fsnotify/fsnotify"

	"github.com/flowguard/flowguard/flow"
	"github.com/flowguard/flowguard/internal/logging"
)

// Engine evaluates a flow's transport tuple and domains against a
// hot-reloadable set of Sigma blocklist rules. It satisfies
// flow.PolicyEvaluator.
type Engine struct {
	rulesDir  string
	mu        sync.RWMutex
	rules     map[string]*evaluator.RuleEvaluator
	ruleByPath map[string]string
	watcher   *fsnotify.Watcher
	log       logging.Logger
}

// New loads every .yml/.yaml rule under rulesDir and starts watching
// the directory for changes. A nil logger falls back to a no-op logger.
func New(rulesDir string, log logging.Logger) (*Engine, error) {
	if log == nil {
		log = logging.NoOp()
	}
	if _, err := os.Stat(rulesDir); err != nil {
		return nil, fmt.Errorf("policy rules directory %q: %w", rulesDir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating rule file watcher: %w", err)
	}

	e := &Engine{
		rulesDir:   rulesDir,
		rules:      make(map[string]*evaluator.RuleEvaluator),
		ruleByPath: make(map[string]string),
		watcher:    watcher,
		log:        log,
	}

	if err := e.loadAll(); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("loading policy rules: %w", err)
	}
	if err := e.watchDirs(); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching policy rules directory: %w", err)
	}
	go e.watchLoop()

	return e, nil
}

// Evaluate reports whether the flow's domains or transport tuple match
// any loaded block rule. It is a pure function of the currently-loaded
// rule set and the given arguments, satisfying flow.PolicyEvaluator.
func (e *Engine) Evaluate(typ flow.Type, dstPort uint16, domains []string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.rules) == 0 {
		return false
	}

	candidates := domains
	if len(candidates) == 0 {
		candidates = []string{""}
	}

	for _, domain := range candidates {
		data := map[string]interface{}{
			"DestinationHostname": domain,
			"DestinationPort":     strconv.Itoa(int(dstPort)),
			"Transport":           typ.String(),
		}
		for _, ev := range e.rules {
			result, err := ev.Matches(context.Background(), data)
			if err != nil {
				e.log.Warning("policy", "rule %s evaluation error: %v", ev.Rule.ID, err)
				continue
			}
			if result.Match {
				e.log.Info("policy", "blocked by rule %s (%s) domain=%s port=%d", ev.Rule.ID, ev.Rule.Title, domain, dstPort)
				return true
			}
		}
	}
	return false
}

// Close stops the file watcher.
func (e *Engine) Close() error {
	return e.watcher.Close()
}

func (e *Engine) loadAll() error {
	return filepath.Walk(e.rulesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		return e.loadFile(path)
	})
}

func (e *Engine) loadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rule file %s: %w", path, err)
	}
	if sigma.InferFileType(content) != sigma.RuleFile {
		e.log.Debug("policy", "ignoring non-rule file %s", path)
		return nil
	}

	rule, err := sigma.ParseRule(content)
	if err != nil {
		return fmt.Errorf("parsing rule %s: %w", path, err)
	}
	if !isFlowBlocklistRule(rule) {
		e.log.Debug("policy", "ignoring non-flow rule %s from %s", rule.Title, path)
		return nil
	}

	ev := evaluator.ForRule(rule,
		evaluator.WithConfig(fieldMappings()),
		evaluator.WithPlaceholderExpander(func(ctx context.Context, name string) ([]string, error) {
			return nil, nil
		}),
	)

	e.mu.Lock()
	e.rules[rule.ID] = ev
	e.ruleByPath[path] = rule.ID
	e.mu.Unlock()
	e.log.Info("policy", "loaded rule %s (%s) from %s", rule.ID, rule.Title, path)
	return nil
}

// isFlowBlocklistRule accepts rules explicitly targeting flow evidence:
// domain, destination port, or transport.
func isFlowBlocklistRule(rule sigma.Rule) bool {
	if rule.Logsource.Category == "network_connection" || rule.Logsource.Service == "network_connection" {
		return true
	}
	for _, search := range rule.Detection.Searches {
		for _, matcher := range search.EventMatchers {
			for _, field := range matcher {
				switch field.Field {
				case "DestinationHostname", "DestinationPort", "Transport":
					return true
				}
			}
		}
	}
	return false
}

func fieldMappings() sigma.Config {
	return sigma.Config{
		Title: "flow evidence field mappings",
		FieldMappings: map[string]sigma.FieldMapping{
			"DestinationHostname": {TargetNames: []string{"DestinationHostname"}},
			"DestinationPort":     {TargetNames: []string{"DestinationPort"}},
			"Transport":           {TargetNames: []string{"Transport"}},
		},
	}
}

func (e *Engine) watchDirs() error {
	return filepath.Walk(e.rulesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return e.watcher.Add(path)
		}
		return nil
	})
}

func (e *Engine) watchLoop() {
	for {
		select {
		case ev, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			ext := filepath.Ext(ev.Name)
			if ext != ".yml" && ext != ".yaml" {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				if err := e.loadFile(ev.Name); err != nil {
					e.log.Warning("policy", "reloading %s: %v", ev.Name, err)
				}
			case ev.Op&fsnotify.Remove != 0:
				e.mu.Lock()
				if id, ok := e.ruleByPath[ev.Name]; ok {
					delete(e.rules, id)
					delete(e.ruleByPath, ev.Name)
				}
				e.mu.Unlock()
			}
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			e.log.Warning("policy", "watch error: %v", err)
		}
	}
}
