package interfaces

import "selene/domain/entities"

// ReportStorage persists failure artifacts and scenario history
type ReportStorage interface {
	// SaveScreenshot writes a PNG and returns its path
	SaveScreenshot(name string, png []byte) (string, error)

	// SavePageSource writes page HTML and returns its path
	SavePageSource(name string, html string) (string, error)

	// SaveHistory saves executed action results
	SaveHistory(history []entities.ActionResult) error

	// LoadHistory loads executed action results
	LoadHistory() ([]entities.ActionResult, error)
}
