package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config carries every tunable of the assistant. Defaults mirror the studio's
// production values; all of them can be overridden from the environment.
type Config struct {
	Port  string `env:"PORT" env-default:"3000"`
	Debug bool   `env:"DEBUG" env-default:"false"`

	Instagram struct {
		AccessToken         string   `env:"IG_USER_ACCESS_TOKEN" env-default:""`
		AdminSenderIDs      []string `env:"ADMIN_SENDER_IDS" env-separator:"," env-default:"1018827777120359,6815817155197102"`
		ReactionBotSenderID string   `env:"REACTION_BOT_SENDER_ID" env-default:"17841463333962356"`
		MuteEmoji           string   `env:"MUTE_REACTION_EMOJI" env-default:"❤"`
	}

	OpenAI struct {
		APIKey         string `env:"OPENAI_API_KEY" env-default:""`
		ModelDefault   string `env:"OPENAI_MODEL_DEFAULT" env-default:"gpt-4o"`
		ModelVision    string `env:"OPENAI_MODEL_VISION" env-default:"gpt-4o-mini"`
		ModelClassify  string `env:"OPENAI_MODEL_CLASSIFY" env-default:"gpt-4o-mini"`
		ModelEmbedding string `env:"OPENAI_MODEL_EMBEDDING" env-default:"text-embedding-3-small"`
	}

	// Batching holds the debounce and coordination parameters. The scheduled
	// flag TTL buffer keeps the flag alive slightly past the timer so a
	// message arriving just before the timer fires cannot re-arm a second one.
	Batching struct {
		GraceWindow     time.Duration `env:"GRACE_WINDOW" env-default:"20s"`
		GraceJitterMax  int           `env:"GRACE_JITTER_MAX_SECONDS" env-default:"10"`
		FlagBuffer      time.Duration `env:"SCHEDULED_FLAG_BUFFER" env-default:"5s"`
		LockTTL         time.Duration `env:"PROCESSING_LOCK_TTL" env-default:"30s"`
		QueueTTL        time.Duration `env:"MESSAGE_QUEUE_TTL" env-default:"10m"`
		PendingTTL      time.Duration `env:"IMAGES_PENDING_TTL" env-default:"1h"`
		AnalysisTTL     time.Duration `env:"IMAGE_ANALYSIS_TTL" env-default:"10m"`
		PendingPollWait time.Duration `env:"PENDING_POLL_WAIT" env-default:"3s"`
	}

	Conversation struct {
		MaxHistory   int           `env:"MAX_HISTORY_LENGTH" env-default:"20"`
		ContextTTL   time.Duration `env:"CONVERSATION_TTL" env-default:"168h"`
		MuteDuration time.Duration `env:"MUTE_DURATION" env-default:"2h"`
		MaxMsgLength int           `env:"MESSAGE_MAX_LENGTH" env-default:"800"`
	}

	Calendar struct {
		Timezone         string        `env:"CALENDAR_TIMEZONE" env-default:"Europe/Athens"`
		CalendarID       string        `env:"CALENDAR_ID" env-default:"primary"`
		CredentialsPath  string        `env:"GOOGLE_CREDENTIALS_FILE" env-default:"credentials.json"`
		TokenPath        string        `env:"GOOGLE_TOKEN_FILE" env-default:"token.json"`
		BusinessStart    int           `env:"BUSINESS_HOURS_START" env-default:"11"`
		BusinessEnd      int           `env:"BUSINESS_HOURS_END" env-default:"20"`
		OverlapTolerance int           `env:"SLOT_OVERLAP_TOLERANCE" env-default:"2"`
		SuggestedSlots   int           `env:"SUGGESTED_SLOTS" env-default:"3"`
		HoldTTL          time.Duration `env:"SLOT_HOLD_TTL" env-default:"30m"`
	}

	Retrieval struct {
		SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" env-default:"0.75"`
		TopK                int     `env:"TOP_K_SIMILAR" env-default:"3"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		desc, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("config: %w; %s", err, desc)
	}
	return cfg, nil
}
