package app

// appearMsg presents the main screen.
type appearMsg struct{}

// toastExpiredMsg hides the toast with the given sequence number, if it is
// still the one showing.
type toastExpiredMsg struct {
	seq int
}
