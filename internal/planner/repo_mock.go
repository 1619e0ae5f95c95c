package planner

import (
	"context"
)

type repoMock struct {
	saved      *State
	saveCalls  int
	loadErr    error
	saveErr    error
	noSavedYet bool
}

func NewMockStateRepo() *repoMock {
	return &repoMock{
		noSavedYet: true,
	}
}

func (r *repoMock) Load(context.Context) (*State, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	if r.noSavedYet || r.saved == nil {
		return nil, ErrStateNotFound
	}
	return r.saved.Clone(), nil
}

func (r *repoMock) Save(_ context.Context, state *State) error {
	r.saveCalls++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = state.Clone()
	r.noSavedYet = false
	return nil
}
