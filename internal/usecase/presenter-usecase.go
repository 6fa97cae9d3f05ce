package usecase

import (
	"context"
	"sync"

	"github.com/iamvkosarev/ai-chat-client/internal/model"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

type PresenterView struct {
	Messages []model.Message
	Awaiting bool
	Notice   *model.Notice
}

// PresenterUsecase is the read side a UI renders from. It mirrors the
// latest session state and forwards the two user operations without
// blocking the caller's event loop.
type PresenterUsecase struct {
	session *SessionUsecase
	ctx     context.Context
	cancel  context.CancelFunc
	wg      *conc.WaitGroup

	mu          sync.Mutex
	state       SessionState
	listeners   map[int]func()
	nextID      int
	unsubscribe func()
}

func NewPresenterUsecase(ctx context.Context, session *SessionUsecase) *PresenterUsecase {
	ctx, cancel := context.WithCancel(ctx)
	p := &PresenterUsecase{
		session:   session,
		ctx:       ctx,
		cancel:    cancel,
		wg:        conc.NewWaitGroup(),
		state:     session.State(),
		listeners: make(map[int]func()),
	}
	p.unsubscribe = session.Subscribe(p.apply)
	return p
}

func (p *PresenterUsecase) View() PresenterView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PresenterView{
		Messages: p.state.Messages,
		Awaiting: p.state.Awaiting,
		Notice:   p.state.Notice,
	}
}

// OnChange registers fn to be called after the view changes. fn runs on
// the goroutine that caused the change, which may be the caller of Send,
// so it must not block on that caller.
func (p *PresenterUsecase) OnChange(fn func()) (cancel func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Send appends text to the transcript before returning and waits for the
// reply in the background. It reports false when text was ignored because
// it is blank or a reply is still pending.
func (p *PresenterUsecase) Send(text string) bool {
	turn, err := p.session.beginSend(p.ctx, text)
	if err != nil {
		p.logIgnored("send", err)
		return false
	}
	p.wg.Go(
		func() {
			_, err := p.session.completeSend(p.ctx, turn)
			p.logIgnored("send", err)
		},
	)
	return true
}

func (p *PresenterUsecase) Clear() {
	p.wg.Go(
		func() {
			p.logIgnored("clear", p.session.ClearConversation(p.ctx))
		},
	)
}

// Close detaches from the session and waits for in-flight operations.
func (p *PresenterUsecase) Close() {
	p.unsubscribe()
	p.cancel()
	p.wg.Wait()
}

func (p *PresenterUsecase) apply(state SessionState) {
	p.mu.Lock()
	if state.Version < p.state.Version {
		p.mu.Unlock()
		return
	}
	p.state = state
	listeners := make([]func(), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (p *PresenterUsecase) logIgnored(op string, err error) {
	var genErr *GenerationError
	switch {
	case err == nil, errors.As(err, &genErr):
		// generation failures already reach the view as a notice
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrReplyPending):
		log.Debug().Err(err).Str("op", op).Msg("operation ignored")
	default:
		log.Warn().Err(err).Str("op", op).Msg("operation failed")
	}
}
