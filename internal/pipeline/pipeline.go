// Package pipeline runs the host check stages in order and stops at the
// first one that decides the status.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielbachhuber/host-check-command/internal/bootstrap"
	"github.com/danielbachhuber/host-check-command/internal/common"
	"github.com/danielbachhuber/host-check-command/internal/constants"
	"github.com/danielbachhuber/host-check-command/internal/probe"
	"github.com/danielbachhuber/host-check-command/internal/store"
	"github.com/danielbachhuber/host-check-command/internal/wpconfig"
	"github.com/danielbachhuber/host-check-command/pkg/status"
)

// Options configure a Pipeline.
type Options struct {
	// URL overrides the site URL like WP-CLI's --url.
	URL       string
	DBTimeout time.Duration
}

// Pipeline checks one installation per Run. It keeps no state between runs.
type Pipeline struct {
	client probe.Requester
	opts   Options
	logger *common.Logger
}

// New returns a Pipeline whose probes fetch through client.
func New(client probe.Requester, opts Options) *Pipeline {
	return &Pipeline{
		client: client,
		opts:   opts,
		logger: common.GetLogger().WithComponent("pipeline"),
	}
}

// Run checks the installation at path and returns its report. The returned
// error is non-nil only for fatal conditions (wpconfig.ErrMalformedConfig,
// probe.ErrWriteMarker, probe.ErrDeleteMarker); every host status, including
// the unhealthy ones, is a successful run.
func (p *Pipeline) Run(ctx context.Context, path string) (status.Report, error) {
	report := status.Report{Path: path}
	p.logger.Info("Loading: " + path)

	cfg, st, err := p.extract(path, &report)
	if err != nil {
		return report, err
	}
	if st.Terminal() {
		return p.finish(report, st)
	}

	rt, st, err := p.bootstrap(ctx, cfg)
	if err != nil {
		return report, err
	}
	if st.Terminal() {
		return p.finish(report, st)
	}
	defer func() {
		if cerr := rt.Close(); cerr != nil {
			p.logger.Warn("close database", "error", cerr)
		}
	}()

	report.Details.WPVersionCheck = status.String(p.nextVersionCheck(ctx, rt.Store()))

	st, err = probe.NewLiveness(p.client).Check(ctx, rt)
	if err != nil {
		return report, err
	}
	if st.IsMissing() {
		return p.finish(report, st)
	}

	st = probe.NewLogin(p.client).Check(ctx, rt)
	p.collect(ctx, rt.Store(), &report.Details)
	return p.finish(report, st)
}

// extract yields the evaluated config, or a terminal status when there is
// no installation or no config to evaluate.
func (p *Pipeline) extract(path string, report *status.Report) (*wpconfig.Config, status.HostStatus, error) {
	cfg, err := wpconfig.Extract(path)
	if errors.Is(err, wpconfig.ErrNoInstallation) {
		return nil, status.NoWPExists, nil
	}
	if cfg != nil {
		report.Version = cfg.Version
		p.logger.Info("WordPress version: " + cfg.Version)
	}
	switch {
	case errors.Is(err, wpconfig.ErrNoConfig):
		return nil, status.NoWPConfig, nil
	case err != nil:
		return nil, status.Unset, err
	}
	return cfg, status.Unset, nil
}

func (p *Pipeline) bootstrap(ctx context.Context, cfg *wpconfig.Config) (*bootstrap.Runtime, status.HostStatus, error) {
	start := time.Now()
	rt, err := bootstrap.Bootstrap(ctx, cfg, bootstrap.Options{URL: p.opts.URL, DBTimeout: p.opts.DBTimeout})
	switch {
	case errors.Is(err, store.ErrDBSelect):
		p.logger.Warn("database could not be selected", "error", err)
		return nil, status.ErrorDBSelect, nil
	case errors.Is(err, store.ErrDBConnect):
		p.logger.Warn("database connection failed", "error", err)
		return nil, status.ErrorDBConnect, nil
	case err != nil:
		return nil, status.Unset, err
	}
	p.logger.Info(fmt.Sprintf("WordPress load time: %.4fs", time.Since(start).Seconds()))
	return rt, status.Unset, nil
}

// nextVersionCheck returns the next wp_version_check run as Y-m-d H:i:s, or
// "" when none is scheduled.
func (p *Pipeline) nextVersionCheck(ctx context.Context, st *store.Store) string {
	next, ok, err := st.NextScheduled(ctx, constants.CronVersionCheckHook)
	if err != nil {
		p.logger.Warn("read cron option", "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	formatted := next.UTC().Format(constants.CronTimeLayout)
	p.logger.Info("Next scheduled wp_version_check: " + formatted)
	return formatted
}

// collect fills the diagnostics read once the site is known to be hosted.
// Lookup failures leave the field null.
func (p *Pipeline) collect(ctx context.Context, st *store.Store, d *status.Diagnostics) {
	logger := p.logger.WithStage("diagnostics")

	if plugins, err := st.ActivePlugins(ctx); err != nil {
		logger.Warn("active plugins", "error", err)
	} else {
		d.ActivePlugins = plugins
	}
	if theme, ok, err := st.ActiveTheme(ctx); err != nil {
		logger.Warn("active theme", "error", err)
	} else if ok {
		d.ActiveTheme = status.String(theme)
	}
	if n, err := st.CountUsers(ctx); err != nil {
		logger.Warn("user count", "error", err)
	} else {
		d.UserCount = status.Int(n)
	}
	if n, err := st.CountPublishedPosts(ctx); err != nil {
		logger.Warn("post count", "error", err)
	} else {
		d.PostCount = status.Int(n)
	}
	if last, ok, err := st.LastPublishedDate(ctx); err != nil {
		logger.Warn("last post date", "error", err)
	} else if ok {
		d.LastPostDate = status.String(last)
	}
}

func (p *Pipeline) finish(report status.Report, st status.HostStatus) (status.Report, error) {
	report.Status = st
	p.logger.Info(report.SummaryLine())
	line, err := report.DetailsLine()
	if err != nil {
		return report, err
	}
	p.logger.Info(line)
	return report, nil
}
