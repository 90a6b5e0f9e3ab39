package app

import (
	"go.uber.org/zap"
)

func (a *Application) initJobs() {
	_, err := a.sched.AddFunc("@every 1m", func() {
		a.authProvider.SweepExpired()
	})
	if err != nil {
		zap.S().Errorf("init session sweep job error: %s", err.Error())
	}
	a.sched.Start()
}
