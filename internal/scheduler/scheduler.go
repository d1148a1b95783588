package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"caja/internal/service"
)

// RegisterCloser то, что умеет закрывать кассу
type RegisterCloser interface {
	CloseRegister(ctx context.Context) (service.CloseResult, error)
}

// CloseObserver получает результат каждого автоматического закрытия
type CloseObserver func(trigger string, err error)

// AutoClose ежедневное закрытие кассы в заданное время
type AutoClose struct {
	sched   *gocron.Scheduler
	closer  RegisterCloser
	observe CloseObserver
	timeout time.Duration
}

// NewAutoClose at в формате HH:MM в зоне loc
func NewAutoClose(loc *time.Location, at string, closer RegisterCloser, observe CloseObserver) (*AutoClose, error) {
	if loc == nil {
		loc = time.UTC
	}
	a := &AutoClose{
		sched:   gocron.NewScheduler(loc),
		closer:  closer,
		observe: observe,
		timeout: time.Minute,
	}
	if _, err := a.sched.Every(1).Day().At(at).Do(a.Run); err != nil {
		return nil, fmt.Errorf("schedule register close at %q: %w", at, err)
	}
	return a, nil
}

// Run одно закрытие; вызывается планировщиком
func (a *AutoClose) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	res, err := a.closer.CloseRegister(ctx)
	if a.observe != nil {
		a.observe("scheduled", err)
	}
	if err != nil {
		logrus.WithError(err).WithField("closed", res.Closed).Error("scheduled register close failed")
		return
	}
	logrus.WithFields(logrus.Fields{"day": res.Day, "closed": res.Closed}).Info("scheduled register close done")
}

func (a *AutoClose) Start() { a.sched.StartAsync() }

func (a *AutoClose) Stop() { a.sched.Stop() }

// NextRun время следующего запуска
func (a *AutoClose) NextRun() time.Time {
	_, t := a.sched.NextRun()
	return t
}
