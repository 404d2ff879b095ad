package selene

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"selene/domain/entities"
	"selene/domain/interfaces"
	"selene/infrastructure/wait"

	"github.com/sirupsen/logrus"
)

var reportSeq atomic.Uint64

// ReportOnFailure - returns a failure hook that saves a screenshot and the page
// source of driver's current page and attaches their paths to the timeout error.
func ReportOnFailure(driver interfaces.Driver, store interfaces.ReportStorage, cfg entities.Config, logger *logrus.Logger) wait.FailureHook {
	return func(ctx context.Context, timeoutErr *entities.TimeoutError) {
		name := fmt.Sprintf("%s-%d", time.Now().Format("20060102-150405"), reportSeq.Add(1))
		log := logger.WithField("report", name)

		if cfg.SaveScreenshotOnFailure {
			if png, err := driver.Screenshot(ctx); err != nil {
				log.WithError(err).Warn("Failed to take screenshot")
			} else if path, err := store.SaveScreenshot(name, png); err != nil {
				log.WithError(err).Warn("Failed to save screenshot")
			} else {
				timeoutErr.Screenshot = path
			}
		}

		if cfg.SavePageSourceOnFailure {
			if source, err := driver.PageSource(ctx); err != nil {
				log.WithError(err).Warn("Failed to read page source")
			} else if path, err := store.SavePageSource(name, source); err != nil {
				log.WithError(err).Warn("Failed to save page source")
			} else {
				timeoutErr.PageSource = path
			}
		}
	}
}
