// File: cmd/probe.go
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagewright/internal/observability"
	"github.com/xkilldash9x/pagewright/pkg/compiler"
	"github.com/xkilldash9x/pagewright/pkg/component"
	"github.com/xkilldash9x/pagewright/pkg/descriptor"
	"github.com/xkilldash9x/pagewright/pkg/driver"
)

// newProbeCmd creates the `probe` command: it opens a browser session,
// navigates to the target URL, and waits for the named component to be
// displayed. The exit status tells a CI pipeline whether the page renders
// what its descriptor promises.
func newProbeCmd() *cobra.Command {
	var targetURL string

	probeCmd := &cobra.Command{
		Use:   "probe <descriptor> <component>",
		Short: "Loads a page and waits for a descriptor component to be displayed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			descriptorPath, componentName := args[0], args[1]

			f, err := os.Open(descriptorPath)
			if err != nil {
				return fmt.Errorf("opening descriptor %s: %w", descriptorPath, err)
			}
			page, err := descriptor.Parse(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("parsing %s: %w", descriptorPath, err)
			}

			graph, err := compiler.New(compiler.NewMemoryTypeCache(), logger).Compile(page)
			if err != nil {
				return fmt.Errorf("compiling %s: %w", descriptorPath, err)
			}

			browserCfg := appConfig.Browser()
			session, err := driver.NewSession(ctx, driver.Options{
				Headless:          browserCfg.Headless,
				IgnoreTLSErrors:   browserCfg.IgnoreTLSErrors,
				UserAgent:         browserCfg.UserAgent,
				WindowWidth:       browserCfg.WindowWidth,
				WindowHeight:      browserCfg.WindowHeight,
				NavigationTimeout: browserCfg.NavigationTimeout,
			}, logger)
			if err != nil {
				return fmt.Errorf("starting browser session: %w", err)
			}
			defer session.Close()

			if err := session.Navigate(ctx, targetURL); err != nil {
				return fmt.Errorf("navigating to %s: %w", targetURL, err)
			}

			live := component.NewPage(session, graph, component.Options{
				Timeout:  appConfig.Wait().Timeout,
				Interval: appConfig.Wait().Interval,
				Logger:   logger,
			})
			target, err := live.Component(componentName)
			if err != nil {
				return err
			}
			if err := target.Expect().IsDisplayed(ctx); err != nil {
				return err
			}

			logger.Info("component displayed",
				zap.String("page", graph.Page),
				zap.String("component", target.Name()),
				zap.String("url", targetURL))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: displayed\n", target.Name())
			return nil
		},
	}

	probeCmd.Flags().StringVarP(&targetURL, "url", "u", "", "URL to load before probing")
	_ = probeCmd.MarkFlagRequired("url")
	return probeCmd
}
