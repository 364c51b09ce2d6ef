// Package app wires the Helios batch builder with uber-fx and runs it.
package app

import (
	"context"

	"go.uber.org/fx"

	config "github.com/tigerroll/helios/pkg/batch/core/config"
	inframetrics "github.com/tigerroll/helios/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/helios/pkg/batch/support/util/logger"
)

// Options returns the Fx options of the application without the run trigger.
func Options(envFilePath string, embeddedConfig config.EmbeddedConfig) fx.Option {
	return fx.Options(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,
		inframetrics.Module,
		Module,
	)
}

// RunApplication builds every configured split and returns the process exit
// code. Cancelling appCtx stops the run; written batch files are kept.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig) int {
	app := fx.New(
		Options(envFilePath, embeddedConfig),
		fx.Supply(fx.Annotate(appCtx, fx.As(new(context.Context)), fx.ResultTags(`name:"appCtx"`))),
		fx.Invoke(fx.Annotate(startRun, fx.ParamTags("", "", "", `name:"appCtx"`))),
	)
	if err := app.Err(); err != nil {
		logger.Errorf("Failed to build application: %v", err)
		return 1
	}

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Failed to start application: %v", err)
		return 1
	}

	sig := <-app.Wait()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Failed to stop application cleanly: %v", err)
		if sig.ExitCode == 0 {
			return 1
		}
	}
	return sig.ExitCode
}

// startRun registers a hook that runs the builder once the application has
// started and shuts the application down when it is done.
func startRun(lc fx.Lifecycle, shutdowner fx.Shutdowner, builder *Builder, appCtx context.Context) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				defer func() {
					if r := recover(); r != nil {
						logger.Errorf("Panic recovered in batch run: %v", r)
						code = 1
					}
					logger.Infof("Requesting application shutdown after the run.")
					if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
						logger.Errorf("Failed to shutdown application: %v", err)
					}
				}()

				summaries, err := builder.Run(appCtx)
				for _, s := range summaries {
					logger.Infof("Split %s: %d batch files, %d samples, %d partitions failed, %d cancelled.",
						s.Split, len(s.Files), s.Samples, s.Failed, s.Cancelled)
				}
				if err != nil {
					logger.Errorf("Batch run failed: %v", err)
					code = 1
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			logger.Infof("Application stopped.")
			return nil
		},
	})
}
