package vault

// reentryGuard is shared by every state-mutating entry point of the
// engine. Operations that move the external asset hold it around their
// asset call; the remaining mutation entry points refuse to run while
// it is held. A callback from a hostile asset therefore cannot move
// shares or reprice between an operation's payout and its commit.
type reentryGuard struct {
	entered bool
}

func (g *reentryGuard) enter() error {
	if g.entered {
		return ErrReentrancy
	}
	g.entered = true
	return nil
}

func (g *reentryGuard) leave() { g.entered = false }

func (g *reentryGuard) held() bool { return g.entered }
