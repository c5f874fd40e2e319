package batch

import "github.com/lehigh-university-libraries/stampmaker/internal/models"

// Observer receives run events synchronously, in completion order
type Observer interface {
	OnProgress(models.Progress)
	OnStamp(models.GeneratedStamp)
	OnItemError(*ItemError)
}

// Hooks adapts optional funcs to an Observer
type Hooks struct {
	Progress  func(models.Progress)
	Stamp     func(models.GeneratedStamp)
	ItemError func(*ItemError)
}

func (h Hooks) OnProgress(p models.Progress) {
	if h.Progress != nil {
		h.Progress(p)
	}
}

func (h Hooks) OnStamp(s models.GeneratedStamp) {
	if h.Stamp != nil {
		h.Stamp(s)
	}
}

func (h Hooks) OnItemError(e *ItemError) {
	if h.ItemError != nil {
		h.ItemError(e)
	}
}

// Multi fans events out to several observers in order
func Multi(observers ...Observer) Observer {
	return multi(observers)
}

type multi []Observer

func (m multi) OnProgress(p models.Progress) {
	for _, o := range m {
		o.OnProgress(p)
	}
}

func (m multi) OnStamp(s models.GeneratedStamp) {
	for _, o := range m {
		o.OnStamp(s)
	}
}

func (m multi) OnItemError(e *ItemError) {
	for _, o := range m {
		o.OnItemError(e)
	}
}
