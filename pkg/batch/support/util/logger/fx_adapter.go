package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes uber-fx lifecycle events through this package.
// Container chatter stays at DEBUG; failures surface at ERROR.
type FxLoggerAdapter struct {
	log *Logger
}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{log: New("fx")}
}

// LogEvent logs events from Fx.
func (a *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		a.log.Debugf("OnStart hook executing: %s", trimFuncName(e.FunctionName))
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			a.log.Errorf("OnStart hook failed: %s, error: %v", trimFuncName(e.FunctionName), e.Err)
			return
		}
		a.log.Debugf("OnStart hook executed: %s (%s)", trimFuncName(e.FunctionName), e.Runtime)
	case *fxevent.OnStopExecuting:
		a.log.Debugf("OnStop hook executing: %s", trimFuncName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			a.log.Errorf("OnStop hook failed: %s, error: %v", trimFuncName(e.FunctionName), e.Err)
		}
	case *fxevent.Supplied:
		if e.Err != nil {
			a.log.Errorf("Supply of %s failed: %v", e.TypeName, e.Err)
		}
	case *fxevent.Provided:
		if e.Err != nil {
			a.log.Errorf("Provide via %s failed: %v", trimFuncName(e.ConstructorName), e.Err)
			return
		}
		for _, t := range e.OutputTypeNames {
			a.log.Debugf("Provided: %s", t)
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			a.log.Errorf("Invoke of %s failed: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		a.log.Infof("Received signal %s, stopping.", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			a.log.Errorf("Stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		a.log.Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			a.log.Errorf("Rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			a.log.Errorf("Start failed: %v", e.Err)
			return
		}
		a.log.Debugf("Container started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			a.log.Errorf("Logger initialization failed: %v", e.Err)
		}
	}
}

// trimFuncName drops the anonymous-function suffix (".func1") from Fx function names.
func trimFuncName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		return funcName[:idx]
	}
	return funcName
}
