package campaign

import (
	"fmt"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// Sentinel errors for the campaign service layer. All wrap the domain
// taxonomy so the HTTP layer maps them without knowing this package.
var (
	ErrNotFound          = fmt.Errorf("campaign %w", domain.ErrNotFound)
	ErrTemplateNotFound  = fmt.Errorf("template %w", domain.ErrNotFound)
	ErrTemplateRequired  = fmt.Errorf("%w: campaign has no template assigned", domain.ErrBusinessRule)
	ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", domain.ErrBusinessRule)
	ErrNotEditable       = fmt.Errorf("%w: only draft campaigns can be edited", domain.ErrBusinessRule)
	ErrDeleteRunning     = fmt.Errorf("%w: cannot delete a running campaign", domain.ErrBusinessRule)
	ErrAlreadyRunning    = fmt.Errorf("%w: campaign is already running", domain.ErrBusinessRule)
)
