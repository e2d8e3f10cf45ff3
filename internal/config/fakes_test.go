package config

import "github.com/zeusync/crowdsim/internal/core/capability"

type nopAgent struct{}

func (nopAgent) SetDestination(capability.Vec3) {}
func (nopAgent) StoppingDistance() float64      { return 0 }
func (nopAgent) IsStopped() bool                { return false }
func (nopAgent) SetStopped(bool)                {}
func (nopAgent) Position() capability.Vec3      { return capability.Vec3{} }

type nopAnimator struct{}

func (nopAnimator) SetFlag(string, bool) {}
