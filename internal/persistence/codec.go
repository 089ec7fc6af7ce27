// Snapshot codec: total conversion between simulation values and plain
// nested values (maps, slices, strings, numbers, bools).
//
// Decoding is lenient: missing or malformed numbers become 0 (or a documented
// default), unknown enum values are dropped, absent sections become empty.
// Only a missing or unusable world is an error.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/talgya/tribe-world/internal/agents"
	"github.com/talgya/tribe-world/internal/engine"
	"github.com/talgya/tribe-world/internal/mathx"
	"github.com/talgya/tribe-world/internal/social"
	"github.com/talgya/tribe-world/internal/weather"
	"github.com/talgya/tribe-world/internal/world"
)

// Version is the snapshot format version written by Encode.
const Version = 1

var (
	// ErrMalformed reports a snapshot whose structure cannot be recovered.
	ErrMalformed = errors.New("malformed snapshot")
	// ErrVersion reports a snapshot written by a newer format.
	ErrVersion = errors.New("unsupported snapshot version")
)

// Snapshot is a complete, resumable simulation save.
type Snapshot struct {
	Version int
	Seed    string
	Tick    uint64
	World   *world.Map
	Agents  []*agents.Agent
	State   *engine.State
	SavedAt time.Time
}

// FromView builds a snapshot of a simulation view.
func FromView(v engine.View, savedAt time.Time) Snapshot {
	return Snapshot{
		Version: Version,
		Seed:    v.Seed,
		Tick:    v.Tick,
		World:   v.World,
		Agents:  v.Agents,
		State:   v.State,
		SavedAt: savedAt.UTC(),
	}
}

// Encode converts a snapshot to nested values. Non-finite numbers are written as 0.
func Encode(s Snapshot) map[string]any {
	st := s.State
	if st == nil {
		st = engine.NewState()
	}
	return map[string]any{
		"version": Version,
		"seed":    s.Seed,
		"tick":    s.Tick,
		"world":   EncodeWorld(s.World),
		"agents":  EncodeAgents(s.Agents),
		"state":   EncodeState(st),
		"savedAt": s.SavedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Decode rebuilds a snapshot from nested values.
func Decode(v any) (Snapshot, error) {
	root, ok := v.(map[string]any)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: root is %T, want object", ErrMalformed, v)
	}
	version := asInt(root["version"])
	if version == 0 {
		version = Version
	}
	if version > Version {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrVersion, version)
	}
	m, err := DecodeWorld(root["world"])
	if err != nil {
		return Snapshot{}, err
	}
	seed := asString(root["seed"])
	if seed == "" {
		seed = m.Seed
	}
	s := Snapshot{
		Version: version,
		Seed:    seed,
		Tick:    asUint(root["tick"]),
		World:   m,
		Agents:  DecodeAgents(root["agents"], m.Width, m.Height),
		State:   DecodeState(root["state"]),
	}
	if ts, err := time.Parse(time.RFC3339Nano, asString(root["savedAt"])); err == nil {
		s.SavedAt = ts
	}
	return s, nil
}

// Marshal encodes a snapshot as JSON.
func Marshal(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(Encode(s))
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal parses JSON, validates it against the snapshot schema and decodes it.
func Unmarshal(data []byte) (Snapshot, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := Validate(v); err != nil {
		return Snapshot{}, err
	}
	return Decode(v)
}

// --- world ---

// EncodeWorld converts a map to nested values.
func EncodeWorld(m *world.Map) map[string]any {
	if m == nil {
		return nil
	}
	tiles := make([]any, len(m.Tiles))
	for i, t := range m.Tiles {
		tiles[i] = map[string]any{
			"x":               t.X,
			"y":               t.Y,
			"altitude":        num(t.Altitude),
			"temperature":     num(t.Temperature),
			"humidity":        num(t.Humidity),
			"baseTemperature": num(t.BaseTemperature),
			"baseHumidity":    num(t.BaseHumidity),
			"biome":           t.Biome.String(),
			"resources":       encodeResources(t.Resources),
			"resourceCaps":    encodeResources(t.Caps),
		}
	}
	return map[string]any{
		"width":  m.Width,
		"height": m.Height,
		"seed":   m.Seed,
		"tiles":  tiles,
	}
}

func encodeResources(r world.Resources) map[string]any {
	return map[string]any{
		"food":      num(r.Food),
		"wood":      num(r.Wood),
		"water":     num(r.Water),
		"materials": num(r.Materials),
	}
}

// DecodeWorld rebuilds a map. Tiles are placed by their coordinates; missing
// tiles stay empty and every resource is clamped into its cap.
func DecodeWorld(v any) (*world.Map, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: world missing", ErrMalformed)
	}
	w, h := asInt(obj["width"]), asInt(obj["height"])
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: world size %dx%d", ErrMalformed, w, h)
	}
	m := world.NewMap(w, h, asString(obj["seed"]))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Tiles[m.Index(x, y)].X = x
			m.Tiles[m.Index(x, y)].Y = y
		}
	}
	for i, raw := range asSlice(obj["tiles"]) {
		t := asMap(raw)
		x, y := asInt(t["x"]), asInt(t["y"])
		if _, hasX := t["x"]; !hasX && i < len(m.Tiles) {
			x, y = i%w, i/w
		}
		if !m.InBounds(x, y) {
			continue
		}
		tile := &m.Tiles[m.Index(x, y)]
		tile.Altitude = asFloat(t["altitude"])
		tile.Temperature = asFloat(t["temperature"])
		tile.Humidity = asFloat(t["humidity"])
		tile.BaseTemperature = asFloatOr(t["baseTemperature"], tile.Temperature)
		tile.BaseHumidity = asFloatOr(t["baseHumidity"], tile.Humidity)
		tile.Biome = world.ParseBiome(asString(t["biome"]))
		tile.Resources = decodeResources(t["resources"])
		tile.Caps = decodeResources(t["resourceCaps"])
	}
	world.Sanitize(m)
	return m, nil
}

func decodeResources(v any) world.Resources {
	r := asMap(v)
	return world.Resources{
		Food:      asFloat(r["food"]),
		Wood:      asFloat(r["wood"]),
		Water:     asFloat(r["water"]),
		Materials: asFloat(r["materials"]),
	}
}

// --- agents ---

// EncodeAgents converts an agent list to nested values.
func EncodeAgents(list []*agents.Agent) []any {
	out := make([]any, 0, len(list))
	for _, a := range list {
		traits := make(map[string]any, len(agents.TraitNames))
		for _, name := range agents.TraitNames {
			traits[name] = num(a.Traits.Get(name))
		}
		memory := make([]any, len(a.Memory))
		for i, m := range a.Memory {
			memory[i] = m
		}
		out = append(out, map[string]any{
			"id":      uint64(a.ID),
			"x":       a.X,
			"y":       a.Y,
			"energy":  num(a.Energy),
			"health":  num(a.Health),
			"age":     a.Age,
			"traits":  traits,
			"memory":  memory,
			"isAlive": a.Alive,
		})
	}
	return out
}

// DecodeAgents rebuilds agents, keeping positions on the map and dropping
// entries without a usable id or with a duplicate id.
func DecodeAgents(v any, width, height int) []*agents.Agent {
	raw := asSlice(v)
	out := make([]*agents.Agent, 0, len(raw))
	seen := map[agents.AgentID]bool{}
	for _, item := range raw {
		obj := asMap(item)
		id := agents.AgentID(asUint(obj["id"]))
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		a := &agents.Agent{
			ID:     id,
			X:      mathx.Clamp(asInt(obj["x"]), 0, max(0, width-1)),
			Y:      mathx.Clamp(asInt(obj["y"]), 0, max(0, height-1)),
			Energy: asFloat(obj["energy"]),
			Health: asFloat(obj["health"]),
			Age:    max(0, asInt(obj["age"])),
			Alive:  asBool(obj["isAlive"], true),
		}
		traits := asMap(obj["traits"])
		for _, name := range agents.TraitNames {
			a.Traits.Set(name, mathx.Clamp01(asFloat(traits[name])))
		}
		for _, m := range asSlice(obj["memory"]) {
			if s, ok := m.(string); ok {
				a.Remember(s)
			}
		}
		if a.Memory == nil {
			a.Memory = []string{}
		}
		out = append(out, a)
	}
	return out
}

// --- simulation state ---

// EncodeState converts the cross-tick state to nested values.
func EncodeState(st *engine.State) map[string]any {
	tribes := make([]any, len(st.Tribes))
	for i, t := range st.Tribes {
		tribes[i] = encodeTribe(t)
	}

	proximity := make(map[string]any, len(st.Proximity))
	for k, v := range st.Proximity {
		proximity[k.String()] = v
	}

	memory := make(map[string]any, len(st.Memory))
	for k, rec := range st.Memory {
		memory[k.String()] = map[string]any{
			"lastActions":       map[string]any{"a": string(rec.LastActions.A), "b": string(rec.LastActions.B)},
			"trustScore":        num(rec.Trust),
			"lastTick":          rec.LastTick,
			"totalTrades":       rec.TotalTrades,
			"totalCooperations": rec.TotalCooperations,
			"totalBetrays":      rec.TotalBetrays,
			"totalAttacks":      rec.TotalAttacks,
			"totalAvoids":       rec.TotalAvoids,
		}
	}

	env := st.Environment
	events := make([]any, len(env.Events))
	for i, e := range env.Events {
		events[i] = map[string]any{
			"id":             e.ID,
			"type":           string(e.Type),
			"x":              e.X,
			"y":              e.Y,
			"radius":         e.Radius,
			"intensity":      num(e.Intensity),
			"durationTicks":  e.DurationTicks,
			"remainingTicks": e.RemainingTicks,
			"startedAtTick":  e.StartedAtTick,
		}
	}

	return map[string]any{
		"tribes":            tribes,
		"proximityCounters": proximity,
		"interactionMemory": memory,
		"environmentState": map[string]any{
			"seasonState": map[string]any{
				"seasonIndex": env.Season.Index,
				"seasonName":  env.Season.Name,
				"year":        env.Season.Year,
				"dayInYear":   env.Season.DayInYear,
			},
			"globalClimateState": map[string]any{
				"globalTempShift":     num(env.Climate.TempShift),
				"globalHumidityShift": num(env.Climate.HumidityShift),
				"driftRate":           num(env.Climate.DriftRate),
			},
			"activeEvents": events,
		},
		"nextAgentId": uint64(st.NextAgentID),
		"nextTribeId": uint64(st.NextTribeID),
	}
}

func encodeTribe(t *social.Tribe) map[string]any {
	members := make([]any, len(t.Members))
	for i, m := range t.Members {
		members[i] = uint64(m)
	}
	culture := make(map[string]any, len(social.Axes))
	for _, a := range social.Axes {
		culture[string(a)] = num(t.Culture.Get(a))
	}
	beliefs := make([]any, len(t.Beliefs))
	for i, b := range t.Beliefs {
		e := b.Effect
		beliefs[i] = map[string]any{
			"id":      b.ID,
			"type":    b.Type,
			"trigger": b.Trigger,
			"effect": map[string]any{
				"harvestMultiplier": num(e.Harvest()),
				"trustGainBonus":    num(e.TrustGainBonus),
				"peaceBias":         num(e.PeaceBias),
				"conflictBias":      num(e.ConflictBias),
				"stabilityBonus":    num(e.StabilityBonus),
				"warShift":          num(e.WarShift),
				"tradeShift":        num(e.TradeShift),
				"ecologyShift":      num(e.EcologyShift),
				"sacrificeChance":   num(e.SacrificeChance),
			},
			"strength": num(b.Strength),
			"age":      b.Age,
		}
	}
	techs := make(map[string]any, len(t.Techs))
	for id, tech := range t.Techs {
		techs[id] = map[string]any{
			"id":       tech.ID,
			"axis":     string(tech.Axis),
			"level":    tech.Level,
			"progress": num(tech.Progress),
			"cost":     num(tech.Cost),
			"effects":  encodeEffects(tech.Effects),
		}
	}
	return map[string]any{
		"id":               uint64(t.ID),
		"members":          members,
		"sharedResources":  map[string]any{"food": num(t.Shared.Food), "wood": num(t.Shared.Wood), "materials": num(t.Shared.Materials)},
		"center":           map[string]any{"x": num(t.CenterX), "y": num(t.CenterY)},
		"stability":        num(t.Stability),
		"culture":          culture,
		"beliefs":          beliefs,
		"technologies":     techs,
		"techProgressRate": num(t.TechProgressRate),
		"globalTechLevel":  t.GlobalTechLevel,
	}
}

func encodeEffects(e social.TechEffects) map[string]any {
	return map[string]any{
		"efficiencyBonus": num(e.Efficiency),
		"storageBonus":    num(e.Storage),
		"movementBonus":   num(e.Movement),
		"defenseBonus":    num(e.Defense),
		"tradeBonus":      num(e.Trade),
	}
}

// DecodeState rebuilds the cross-tick state. A missing state decodes as a fresh one.
func DecodeState(v any) *engine.State {
	st := engine.NewState()
	obj, ok := v.(map[string]any)
	if !ok {
		return st
	}

	owned := map[agents.AgentID]bool{}
	seenTribe := map[social.TribeID]bool{}
	for _, raw := range asSlice(obj["tribes"]) {
		t := decodeTribe(asMap(raw), owned)
		if t == nil || seenTribe[t.ID] {
			continue
		}
		seenTribe[t.ID] = true
		st.Tribes = append(st.Tribes, t)
	}
	social.SortTribes(st.Tribes)

	for key, raw := range asMap(obj["proximityCounters"]) {
		k, err := agents.ParsePairKey(key)
		if err != nil {
			continue
		}
		if n := asInt(raw); n > 0 {
			st.Proximity[k] = n
		}
	}

	for key, raw := range asMap(obj["interactionMemory"]) {
		k, err := social.ParsePairKey(key)
		if err != nil {
			continue
		}
		st.Memory[k] = decodeMemory(asMap(raw))
	}

	envObj := asMap(obj["environmentState"])
	season := asMap(envObj["seasonState"])
	climate := asMap(envObj["globalClimateState"])
	st.Environment.Season = weather.SeasonState{
		Index:     mathx.Clamp(asInt(season["seasonIndex"]), 0, weather.SeasonCount-1),
		Year:      max(0, asInt(season["year"])),
		DayInYear: mathx.Clamp(asInt(season["dayInYear"]), 0, weather.TicksPerYear-1),
	}
	st.Environment.Season.Name = weather.SeasonName(st.Environment.Season.Index)
	st.Environment.Climate = weather.Climate{
		TempShift:     mathx.ClampF(asFloat(climate["globalTempShift"]), -weather.MaxClimateShift, weather.MaxClimateShift),
		HumidityShift: mathx.ClampF(asFloat(climate["globalHumidityShift"]), -weather.MaxClimateShift, weather.MaxClimateShift),
		DriftRate:     asFloatOr(climate["driftRate"], weather.DefaultDriftRate),
	}

	events := asSlice(envObj["activeEvents"])
	if events == nil {
		events = asSlice(obj["activeEvents"])
	}
	st.Environment.Events = []weather.Event{}
	for _, raw := range events {
		e := asMap(raw)
		ev := weather.Event{
			ID:             asString(e["id"]),
			Type:           weather.EventType(asString(e["type"])),
			X:              asInt(e["x"]),
			Y:              asInt(e["y"]),
			Radius:         max(0, asInt(e["radius"])),
			Intensity:      mathx.ClampF(asFloat(e["intensity"]), 0, weather.MaxIntensity),
			DurationTicks:  max(0, asInt(e["durationTicks"])),
			RemainingTicks: asInt(e["remainingTicks"]),
			StartedAtTick:  asUint(e["startedAtTick"]),
		}
		if !weather.ValidEventType(ev.Type) || ev.RemainingTicks <= 0 {
			continue
		}
		st.Environment.Events = append(st.Environment.Events, ev)
	}

	st.NextAgentID = agents.AgentID(asUint(obj["nextAgentId"]))
	st.NextTribeID = social.TribeID(asUint(obj["nextTribeId"]))
	for _, t := range st.Tribes {
		if t.ID >= st.NextTribeID {
			st.NextTribeID = t.ID + 1
		}
	}
	if st.NextAgentID == 0 {
		st.NextAgentID = 1
	}
	return st
}

// decodeTribe rebuilds one tribe. Members already owned by an earlier tribe
// are dropped so no agent belongs to two tribes.
func decodeTribe(obj map[string]any, owned map[agents.AgentID]bool) *social.Tribe {
	id := social.TribeID(asUint(obj["id"]))
	if id == 0 {
		return nil
	}
	t := &social.Tribe{
		ID:               id,
		Beliefs:          []social.Belief{},
		Techs:            map[string]*social.Technology{},
		Stability:        asFloat(obj["stability"]),
		TechProgressRate: asFloat(obj["techProgressRate"]),
		GlobalTechLevel:  asInt(obj["globalTechLevel"]),
	}
	for _, raw := range asSlice(obj["members"]) {
		m := agents.AgentID(asUint(raw))
		if m == 0 || owned[m] {
			continue
		}
		if t.AddMember(m) {
			owned[m] = true
		}
	}
	shared := asMap(obj["sharedResources"])
	t.Shared = social.Stock{
		Food:      asFloat(shared["food"]),
		Wood:      asFloat(shared["wood"]),
		Materials: asFloat(shared["materials"]),
	}
	center := asMap(obj["center"])
	t.CenterX, t.CenterY = asFloat(center["x"]), asFloat(center["y"])

	culture := asMap(obj["culture"])
	for _, a := range social.Axes {
		t.Culture.Set(a, asFloat(culture[string(a)]))
	}

	for _, raw := range asSlice(obj["beliefs"]) {
		b := asMap(raw)
		e := asMap(b["effect"])
		belief := social.Belief{
			ID:      asString(b["id"]),
			Type:    asString(b["type"]),
			Trigger: asString(b["trigger"]),
			Effect: social.BeliefEffect{
				HarvestMultiplier: asFloatOr(e["harvestMultiplier"], 1),
				TrustGainBonus:    asFloat(e["trustGainBonus"]),
				PeaceBias:         asFloat(e["peaceBias"]),
				ConflictBias:      asFloat(e["conflictBias"]),
				StabilityBonus:    asFloat(e["stabilityBonus"]),
				WarShift:          asFloat(e["warShift"]),
				TradeShift:        asFloat(e["tradeShift"]),
				EcologyShift:      asFloat(e["ecologyShift"]),
				SacrificeChance:   asFloat(e["sacrificeChance"]),
			},
			Strength: asFloat(b["strength"]),
			Age:      max(0, asInt(b["age"])),
		}
		if belief.Trigger == "" || t.HasTrigger(belief.Trigger) || len(t.Beliefs) >= social.MaxBeliefs {
			continue
		}
		t.Beliefs = append(t.Beliefs, belief)
	}

	techObj := asMap(obj["technologies"])
	ids := make([]string, 0, len(techObj))
	for k := range techObj {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	for _, key := range ids {
		raw := asMap(techObj[key])
		axis := social.Axis(asString(raw["axis"]))
		if axis == "" {
			axis = social.Axis(strings.TrimPrefix(key, "emergent-"))
		}
		e := asMap(raw["effects"])
		t.Techs[key] = &social.Technology{
			ID:       key,
			Axis:     axis,
			Level:    asInt(raw["level"]),
			Progress: asFloat(raw["progress"]),
			Cost:     asFloatOr(raw["cost"], social.EmergentCost),
			Effects: social.TechEffects{
				Efficiency: asFloat(e["efficiencyBonus"]),
				Storage:    asFloat(e["storageBonus"]),
				Movement:   asFloat(e["movementBonus"]),
				Defense:    asFloat(e["defenseBonus"]),
				Trade:      asFloat(e["tradeBonus"]),
			},
		}
	}
	t.Sanitize()
	return t
}

func decodeMemory(obj map[string]any) social.MemoryRecord {
	rec := social.NewMemoryRecord()
	last := asMap(obj["lastActions"])
	rec.LastActions = social.LastActions{A: decodeAction(last["a"]), B: decodeAction(last["b"])}
	rec.Trust = asFloat(obj["trustScore"])
	if _, ok := obj["lastTick"]; ok {
		rec.LastTick = int64(asInt(obj["lastTick"]))
	}
	rec.TotalTrades = max(0, asInt(obj["totalTrades"]))
	rec.TotalCooperations = max(0, asInt(obj["totalCooperations"]))
	rec.TotalBetrays = max(0, asInt(obj["totalBetrays"]))
	rec.TotalAttacks = max(0, asInt(obj["totalAttacks"]))
	rec.TotalAvoids = max(0, asInt(obj["totalAvoids"]))
	return rec.Normalize()
}

func decodeAction(v any) social.Action {
	a := social.Action(asString(v))
	for _, known := range social.Actions {
		if a == known {
			return a
		}
	}
	return social.ActionAvoid
}

// --- lenient scalar helpers ---

func num(v float64) float64 {
	return mathx.Finite(v, 0)
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

// asFloatOr returns def only when v is absent; malformed values become 0.
func asFloatOr(v any, def float64) float64 {
	if v == nil {
		return def
	}
	return asFloat(v)
}

func asFloat(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case json.Number:
		f, _ = n.Float64()
	}
	return mathx.Finite(f, 0)
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	f := asFloat(v)
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0
	}
	return int(f)
}

func asUint(v any) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case int:
		if n > 0 {
			return uint64(n)
		}
		return 0
	}
	f := asFloat(v)
	if f <= 0 || f >= math.MaxUint64 {
		return 0
	}
	return uint64(f)
}
