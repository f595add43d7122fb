package btcsync

/*
Observers got notified once an interested action is found
*/

import "context"

// Observer on deposit funding
type FundingObserver interface {
	GetNotifiedFunding(ctx context.Context)
}
