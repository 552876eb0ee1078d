package bridge

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/cinnamon-core/internal/sequence"
	"github.com/nerrad567/cinnamon-core/internal/spatial"
	"github.com/nerrad567/cinnamon-core/internal/timeline"
)

// DefaultSpawnParent is the parent used for children when none is configured.
const DefaultSpawnParent = "controller"

// SpawnerConfig tunes the spawner.
type SpawnerConfig struct {
	// Parent is the scene object spawned children attach to.
	Parent string
	// Rand draws random yaw. Nil uses a time-seeded source.
	Rand *rand.Rand
}

// Spawner places prefabs relative to the spawn origin.
type Spawner struct {
	sched  *timeline.Scheduler
	out    Sender
	origin sequence.Locator
	logger Logger
	parent string
	rnd    *rand.Rand

	target *spatial.SpawnDescriptor
	live   map[string]string // instance → prefab
}

// NewSpawner creates a spawner. origin supplies the spawn position; nil
// spawns at the world origin.
func NewSpawner(sched *timeline.Scheduler, out Sender, origin sequence.Locator, cfg SpawnerConfig, logger Logger) *Spawner {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.Parent == "" {
		cfg.Parent = DefaultSpawnParent
	}
	if cfg.Rand == nil {
		seed := uint64(time.Now().UnixNano()) // #nosec G115 -- seed only
		cfg.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Spawner{
		sched:  sched,
		out:    out,
		origin: origin,
		logger: logger,
		parent: cfg.Parent,
		rnd:    cfg.Rand,
		live:   make(map[string]string),
	}
}

// SetTarget selects what the next Spawn places.
func (s *Spawner) SetTarget(desc spatial.SpawnDescriptor) {
	d := desc
	s.target = &d
}

// Spawn places the current target.
func (s *Spawner) Spawn() {
	if s.target == nil || s.target.Empty() {
		s.logger.Warn("no prefab assigned to spawn")
		return
	}
	s.SpawnNow(*s.target)
}

// SpawnNow places desc immediately and returns the instance id, or "" if
// desc names no prefab.
func (s *Spawner) SpawnNow(desc spatial.SpawnDescriptor) string {
	if desc.Empty() {
		s.logger.Warn("no prefab assigned to spawn")
		return ""
	}

	var base spatial.Vec3
	if s.origin != nil {
		base = s.origin.HandPosition()
	}

	cmd := SpawnCommand{
		Instance: uuid.New().String(),
		Prefab:   desc.Prefab,
		Position: base.Add(desc.Offset),
	}
	if desc.RandomRotation {
		cmd.Rotation.Yaw = s.rnd.Float64() * 360
	}
	if desc.AsChild {
		cmd.Parent = s.parent
	}

	if err := s.out.Send(mqtt.Topics{}.Command(mqtt.CommandSpawn), cmd, false); err != nil {
		s.logger.Warn("spawn command not sent", "prefab", desc.Prefab, "error", err)
		return ""
	}
	s.live[cmd.Instance] = desc.Prefab
	s.logger.Info("spawned", "prefab", desc.Prefab, "instance", cmd.Instance)

	if desc.DestroyAfter {
		delay := desc.DestroyDelay
		if delay <= 0 {
			delay = spatial.DefaultDestroyDelay
		}
		instance := cmd.Instance
		s.sched.After(delay, func() { s.Despawn(instance) })
	}
	return cmd.Instance
}

// Despawn removes a live instance. It reports whether the instance was live.
func (s *Spawner) Despawn(instance string) bool {
	if _, ok := s.live[instance]; !ok {
		return false
	}
	delete(s.live, instance)
	if err := s.out.Send(mqtt.Topics{}.Command(mqtt.CommandDespawn), DespawnCommand{Instance: instance}, false); err != nil {
		s.logger.Warn("despawn command not sent", "instance", instance, "error", err)
	}
	return true
}

// Live returns the number of spawned instances not yet despawned.
func (s *Spawner) Live() int {
	return len(s.live)
}
