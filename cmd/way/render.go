package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/way"
	"github.com/vango-dev/way/pkg/dom"
	"github.com/vango-dev/way/pkg/reactive"
)

func renderCmd() *cobra.Command {
	var (
		dispatches []string
		ids        bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Hydrate a page and print the result",
		Long: `Hydrate an HTML page, replay simulated events, and print the document.

Events are given as "#id:event" or "#id:event=value". A value sets the
element's value before the event fires; for checkboxes and radios it sets
the checked state instead.

Examples:
  way render index.html
  way render form.html --dispatch "#name:input=Ada" --dispatch "#save:click"
  way render index.html --ids`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], configPath, dispatches, ids)
		},
	}

	cmd.Flags().StringArrayVarP(&dispatches, "dispatch", "d", nil, `Event to simulate, as "#id:event[=value]" (repeatable)`)
	cmd.Flags().BoolVar(&ids, "ids", false, "Assign hydration IDs to interactive elements")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default way.json or way.yaml in the working directory)")

	return cmd
}

// dispatch is one simulated event.
type dispatch struct {
	ID    string
	Event string
	Value *string
}

func parseDispatch(s string) (dispatch, error) {
	rest, ok := strings.CutPrefix(s, "#")
	if !ok {
		return dispatch{}, fmt.Errorf("dispatch %q: want #id:event[=value]", s)
	}
	id, event, ok := strings.Cut(rest, ":")
	if !ok || id == "" {
		return dispatch{}, fmt.Errorf("dispatch %q: want #id:event[=value]", s)
	}
	d := dispatch{ID: id, Event: event}
	if name, value, ok := strings.Cut(event, "="); ok {
		d.Event = name
		d.Value = &value
	}
	if d.Event == "" {
		return dispatch{}, fmt.Errorf("dispatch %q: missing event name", s)
	}
	return d, nil
}

func runRender(cmd *cobra.Command, file, configPath string, specs []string, ids bool) error {
	events := make([]dispatch, 0, len(specs))
	for _, s := range specs {
		d, err := parseDispatch(s)
		if err != nil {
			return err
		}
		events = append(events, d)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	reactive.SetMaxFlushRounds(cfg.Runtime.MaxFlushRounds)

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	doc, err := dom.Parse(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	eng := way.New(doc,
		way.WithLogger(logger),
		way.WithExprCacheSize(cfg.Runtime.ExprCacheSize),
	)
	defer eng.Dispose()

	if err := registerForms(eng, cfg); err != nil {
		return err
	}
	if err := eng.Render(cmd.Context(), doc.Body(), cfg.Props); err != nil {
		return err
	}

	for _, d := range events {
		el := doc.GetElementByID(d.ID)
		if el == nil {
			return fmt.Errorf("dispatch: no element with id %q", d.ID)
		}
		var opts []way.TriggerOption
		if d.Value != nil {
			opt, err := valueOption(el, *d.Value)
			if err != nil {
				return err
			}
			opts = append(opts, opt)
		}
		eng.Trigger(el, d.Event, opts...)
	}

	if ids {
		doc.AssignHIDs()
	}

	out, err := dom.RenderString(doc.Root())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

func valueOption(el *dom.Node, value string) (way.TriggerOption, error) {
	if el.Tag == "input" {
		switch el.Attr("type") {
		case "checkbox", "radio":
			on, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("dispatch: #%s is a %s, want true or false", el.Attr("id"), el.Attr("type"))
			}
			return way.WithChecked(on), nil
		}
	}
	return way.WithValue(value), nil
}
