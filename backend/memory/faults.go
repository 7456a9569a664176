package memory

import "context"

// Op names a backend operation for fault injection.
type Op string

const (
	OpGetSession     Op = "get_session"
	OpSignIn         Op = "sign_in"
	OpSignOut        Op = "sign_out"
	OpResetPassword  Op = "reset_password"
	OpUpdatePassword Op = "update_password"
	OpChallenge      Op = "challenge"
	OpVerify         Op = "verify"
	OpVerifyFactor   Op = "verify_factor"
	OpEnroll         Op = "enroll"
	OpUnenroll       Op = "unenroll"
	OpListFactors    Op = "list_factors"
)

type fault struct {
	err       error
	remaining int // < 0: forever
}

// Inject makes the next times calls of op fail with err. times < 0 fails
// every call until Clear.
func (b *Backend) Inject(op Op, err error, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil || times == 0 {
		delete(b.faults, op)
		return
	}
	b.faults[op] = &fault{err: err, remaining: times}
}

// Clear removes every injected fault.
func (b *Backend) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults = make(map[Op]*fault)
}

func (b *Backend) fault(ctx context.Context, op Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	f, ok := b.faults[op]
	if !ok {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
		if f.remaining == 0 {
			delete(b.faults, op)
		}
	}
	return f.err
}
