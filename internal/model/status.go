package model

// PostStatus is the lifecycle state of a scheduled post.
type PostStatus string

const (
	PostAwaitingGeneration PostStatus = "awaiting_generation"
	PostPending            PostStatus = "pending"
	PostPosting            PostStatus = "posting"
	PostPosted             PostStatus = "posted"
	PostRetrying           PostStatus = "retrying"
	PostFailed             PostStatus = "failed"
	PostCancelled          PostStatus = "cancelled"
)

// postTransitions is the single source of truth for legal status moves.
// POSTED and CANCELLED are absorbing.
var postTransitions = map[PostStatus][]PostStatus{
	PostAwaitingGeneration: {PostPending, PostPosting, PostRetrying, PostFailed, PostCancelled},
	PostPending:            {PostPosting, PostCancelled},
	PostPosting:            {PostPosted, PostRetrying, PostFailed},
	PostRetrying:           {PostPosting, PostFailed, PostCancelled},
	PostFailed:             {PostRetrying},
	PostPosted:             nil,
	PostCancelled:          nil,
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s PostStatus) CanTransitionTo(next PostStatus) bool {
	for _, t := range postTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s PostStatus) Terminal() bool { return len(postTransitions[s]) == 0 }

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

var campaignTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignDraft:     {CampaignActive, CampaignCancelled},
	CampaignActive:    {CampaignPaused, CampaignCompleted, CampaignCancelled},
	CampaignPaused:    {CampaignActive, CampaignCancelled},
	CampaignCompleted: nil,
	CampaignCancelled: nil,
}

func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, t := range campaignTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s CampaignStatus) Terminal() bool { return len(campaignTransitions[s]) == 0 }

// StrategyStatus is the lifecycle state of a growth strategy.
type StrategyStatus string

const (
	StrategyDraft     StrategyStatus = "draft"
	StrategyActive    StrategyStatus = "active"
	StrategyPaused    StrategyStatus = "paused"
	StrategyCompleted StrategyStatus = "completed"
	StrategyCancelled StrategyStatus = "cancelled"
)

var strategyTransitions = map[StrategyStatus][]StrategyStatus{
	StrategyDraft:     {StrategyActive, StrategyCancelled},
	StrategyActive:    {StrategyPaused, StrategyCompleted, StrategyCancelled},
	StrategyPaused:    {StrategyActive, StrategyCancelled},
	StrategyCompleted: nil,
	StrategyCancelled: nil,
}

func (s StrategyStatus) CanTransitionTo(next StrategyStatus) bool {
	for _, t := range strategyTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s StrategyStatus) Terminal() bool { return len(strategyTransitions[s]) == 0 }

// TargetStatus is the lifecycle state of an engagement target.
type TargetStatus string

const (
	TargetPending   TargetStatus = "pending"
	TargetCompleted TargetStatus = "completed"
	TargetFailed    TargetStatus = "failed"
	TargetSkipped   TargetStatus = "skipped"
)

// TargetKind distinguishes account targets from tweet targets.
type TargetKind string

const (
	TargetAccount TargetKind = "account"
	TargetTweet   TargetKind = "tweet"
)

// Action is a quota-tracked engagement action class.
type Action string

const (
	ActionFollow   Action = "follow"
	ActionUnfollow Action = "unfollow"
	ActionLike     Action = "like"
	ActionRetweet  Action = "retweet"
	ActionReply    Action = "reply"
	ActionPost     Action = "post"
)

// QuotaBucket maps an action to the daily counter it consumes.
// Tweets, retweets and replies all draw from the post bucket.
func (a Action) QuotaBucket() Action {
	switch a {
	case ActionRetweet, ActionReply:
		return ActionPost
	default:
		return a
	}
}

// Tone selects the voice used for generated content.
type Tone string

const (
	ToneProfessional      Tone = "professional"
	ToneCasual            Tone = "casual"
	ToneViral             Tone = "viral"
	ToneThoughtLeadership Tone = "thought_leadership"
)
