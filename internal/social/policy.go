package social

// Policy holds the tunable constants of tribe decision making and payoffs.
// DefaultPolicy reproduces the stock behavior; config overrides any field.
type Policy struct {
	// Decision thresholds, evaluated in this priority order.
	VulnerablePower     float64 `yaml:"vulnerable_power" json:"vulnerablePower"`
	VulnerableStability float64 `yaml:"vulnerable_stability" json:"vulnerableStability"`
	AvoidTrust          float64 `yaml:"avoid_trust" json:"avoidTrust"`
	AvoidConflict       float64 `yaml:"avoid_conflict" json:"avoidConflict"`
	AttackConflict      float64 `yaml:"attack_conflict" json:"attackConflict"`
	AttackPower         float64 `yaml:"attack_power" json:"attackPower"`
	BetrayMargin        float64 `yaml:"betray_margin" json:"betrayMargin"`
	TradePeace          float64 `yaml:"trade_peace" json:"tradePeace"`
	CooperatePeace      float64 `yaml:"cooperate_peace" json:"cooperatePeace"`
	NoiseSpan           float64 `yaml:"noise_span" json:"noiseSpan"`

	// Cooldown: an attack within this many ticks at trust below CooldownTrust
	// turns attack choices into avoid.
	CooldownTicks uint64  `yaml:"cooldown_ticks" json:"cooldownTicks"`
	CooldownTrust float64 `yaml:"cooldown_trust" json:"cooldownTrust"`

	// Payoffs.
	TradeTrust     float64 `yaml:"trade_trust" json:"tradeTrust"`
	TradeStability float64 `yaml:"trade_stability" json:"tradeStability"`
	CoopTrust      float64 `yaml:"coop_trust" json:"coopTrust"`
	CoopStability  float64 `yaml:"coop_stability" json:"coopStability"`
	BetrayTheft    float64 `yaml:"betray_theft" json:"betrayTheft"`
	BetrayPenalty  float64 `yaml:"betray_penalty" json:"betrayPenalty"`
	AttackTrust    float64 `yaml:"attack_trust" json:"attackTrust"`
	AttackPenalty  float64 `yaml:"attack_penalty" json:"attackPenalty"`
	MismatchTrust  float64 `yaml:"mismatch_trust" json:"mismatchTrust"`

	// Resolver limits.
	InteractionRange float64 `yaml:"interaction_range" json:"interactionRange"`
	MaxInteractions  int     `yaml:"max_interactions" json:"maxInteractions"`

	// Energy sharing between nearby agents. The gap threshold grows with the
	// higher war culture of the two agents' tribes.
	ShareGap      float64 `yaml:"share_gap" json:"shareGap"`
	ShareWarScale float64 `yaml:"share_war_scale" json:"shareWarScale"`
	ShareDonorMin float64 `yaml:"share_donor_min" json:"shareDonorMin"`
	ShareAmount   float64 `yaml:"share_amount" json:"shareAmount"`
}

// DefaultPolicy returns the stock policy table.
func DefaultPolicy() Policy {
	return Policy{
		VulnerablePower:     0.8,
		VulnerableStability: 0.5,
		AvoidTrust:          -0.2,
		AvoidConflict:       0.45,
		AttackConflict:      0.7,
		AttackPower:         0.95,
		BetrayMargin:        0.1,
		TradePeace:          0.72,
		CooperatePeace:      0.52,
		NoiseSpan:           0.2,

		CooldownTicks: 4,
		CooldownTrust: -0.5,

		TradeTrust:     0.08,
		TradeStability: 0.04,
		CoopTrust:      0.07,
		CoopStability:  0.06,
		BetrayTheft:    4,
		BetrayPenalty:  0.08,
		AttackTrust:    -0.22,
		AttackPenalty:  0.12,
		MismatchTrust:  -0.03,

		InteractionRange: 12,
		MaxInteractions:  5,

		ShareGap:      14,
		ShareWarScale: 2.4,
		ShareDonorMin: 55,
		ShareAmount:   3,
	}
}

// ShareThreshold is the energy gap needed before a donor shares.
func (p Policy) ShareThreshold(war float64) float64 {
	return p.ShareGap + war*p.ShareWarScale
}
