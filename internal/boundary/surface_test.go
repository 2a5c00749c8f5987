package boundary

import (
	"math"
	"testing"

	"majestik.world/internal/sim/terrain"
)

func createCore(t *testing.T, cfg Config) Handle {
	t.Helper()
	h, res := CoreCreate(cfg)
	if res != ResultSuccess {
		t.Fatalf("CoreCreate = %v", res)
	}
	t.Cleanup(func() { CoreDestroy(h) })
	return h
}

func TestCreateTickDestroyRoundTrip(t *testing.T) {
	h := createCore(t, ConfigDefaults())

	if res := CoreTick(h, 0.05, true); res != ResultSuccess {
		t.Fatalf("CoreTick = %v", res)
	}
	tt, res := CoreTimeSeconds(h)
	if res != ResultSuccess {
		t.Fatalf("CoreTimeSeconds = %v", res)
	}
	if math.Abs(tt-0.05) > 1e-9 {
		t.Fatalf("time = %v, want 0.05", tt)
	}
	mode, res := CoreGameMode(h)
	if res != ResultSuccess || mode != GameModeServer {
		t.Fatalf("CoreGameMode = (%v, %v)", mode, res)
	}

	CoreDestroy(h)
	if _, res := CoreTimeSeconds(h); res != ResultNullPointer {
		t.Fatalf("read after destroy = %v, want ResultNullPointer", res)
	}
	if res := CoreTick(h, 0.05, false); res != ResultNullPointer {
		t.Fatalf("tick after destroy = %v, want ResultNullPointer", res)
	}
	CoreDestroy(h) // repeated destroy is a no-op
	CoreDestroy(0) // handle 0 is a no-op
}

func TestCreateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want Result
	}{
		{"x axis too large", func(c *Config) { c.MapSizeLgX = 16 }, ResultInvalidMapSize},
		{"y axis too large", func(c *Config) { c.MapSizeLgY = 16 }, ResultInvalidMapSize},
		{"day cycle negative", func(c *Config) { c.DayCycleCoefficient = -1 }, ResultInvalidDayCycle},
		{"day cycle NaN", func(c *Config) { c.DayCycleCoefficient = math.NaN() }, ResultInvalidDayCycle},
		{"unknown game mode", func(c *Config) { c.GameMode = 42 }, ResultInvalidGameMode},
		{"negative game mode", func(c *Config) { c.GameMode = -1 }, ResultInvalidGameMode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ConfigDefaults()
			tc.mut(&cfg)
			h, res := CoreCreate(cfg)
			if res != tc.want {
				t.Fatalf("CoreCreate = %v, want %v", res, tc.want)
			}
			if h != 0 {
				t.Fatalf("rejected create issued handle %d", h)
			}
		})
	}
}

func TestTickDeltaTimePolicy(t *testing.T) {
	subnormal := math.Float32frombits(1) // smallest positive subnormal
	negZero := float32(math.Copysign(0, -1))

	cases := []struct {
		name string
		dt   float32
		want Result
	}{
		{"positive zero", 0, ResultSuccess},
		{"subnormal", subnormal, ResultSuccess},
		{"normal", 0.016, ResultSuccess},
		{"exactly max", 10.0, ResultSuccess},
		{"negative zero", negZero, ResultInvalidDeltaTime},
		{"negative", -0.1, ResultInvalidDeltaTime},
		{"above max", float32(math.Nextafter32(10.0, 11.0)), ResultInvalidDeltaTime},
		{"NaN", float32(math.NaN()), ResultInvalidDeltaTime},
		{"+Inf", float32(math.Inf(1)), ResultInvalidDeltaTime},
		{"-Inf", float32(math.Inf(-1)), ResultInvalidDeltaTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := createCore(t, ConfigDefaults())
			before, _ := CoreTimeSeconds(h)
			res := CoreTick(h, tc.dt, false)
			if res != tc.want {
				t.Fatalf("CoreTick(%v) = %v, want %v", tc.dt, res, tc.want)
			}
			after, _ := CoreTimeSeconds(h)
			if tc.want != ResultSuccess && after != before {
				t.Fatalf("rejected tick advanced time from %v to %v", before, after)
			}
		})
	}
}

func TestTickValidatesDeltaBeforeHandle(t *testing.T) {
	// A bogus dt on a dead handle reports the dt error, matching a host that
	// validates inputs before resolving state.
	if res := CoreTick(0, float32(math.NaN()), false); res != ResultInvalidDeltaTime {
		t.Fatalf("CoreTick = %v, want ResultInvalidDeltaTime", res)
	}
}

func TestTakeLastTerrainDiffRoundTrip(t *testing.T) {
	h := createCore(t, ConfigDefaults())

	// First terrain tick materializes the whole 2x2 default map.
	if res := CoreTick(h, 0.05, true); res != ResultSuccess {
		t.Fatalf("CoreTick = %v", res)
	}

	diff, res := CoreTakeLastTerrainDiff(h)
	if res != ResultSuccess {
		t.Fatalf("take = %v", res)
	}
	defer FreeTerrainDiffBuffers(&diff)

	got := diff.NewChunks.Coords()
	want := []terrain.ChunkCoord{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	if len(got) != len(want) {
		t.Fatalf("new chunks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("new chunks[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if diff.ModifiedChunks.Len != 0 || diff.RemovedChunks.Len != 0 {
		t.Fatalf("unexpected modified/removed: %+v", diff)
	}

	// Taking consumed the diff; a second take is empty.
	second, res := CoreTakeLastTerrainDiff(h)
	if res != ResultSuccess {
		t.Fatalf("second take = %v", res)
	}
	if second.NewChunks.Len != 0 || second.NewChunks.Ptr != nil || second.NewChunks.OwnerID != 0 {
		t.Fatalf("second take not canonical empty: %+v", second)
	}
	FreeTerrainDiffBuffers(&second)
}

func TestTakeLastTerrainDiffOnDeadHandle(t *testing.T) {
	if _, res := CoreTakeLastTerrainDiff(0); res != ResultNullPointer {
		t.Fatalf("take = %v, want ResultNullPointer", res)
	}
}

func TestTakeLastTerrainDiffOversizePreservesDiff(t *testing.T) {
	h := createCore(t, ConfigDefaults())
	inst, _ := lookupInstance(h)

	big := make([]terrain.ChunkCoord, MaxChunkCoords+1)
	for i := range big {
		big[i] = terrain.ChunkCoord{X: int32(i), Y: 0}
	}
	inst.core.InjectLastTerrainDiff(terrain.Diff{NewChunks: big})

	if _, res := CoreTakeLastTerrainDiff(h); res != ResultBufferTooLarge {
		t.Fatalf("take = %v, want ResultBufferTooLarge", res)
	}
	// The pending diff is untouched and still reports too large.
	if _, res := CoreTakeLastTerrainDiff(h); res != ResultBufferTooLarge {
		t.Fatal("oversize diff was consumed by the failed take")
	}
	if got := inst.core.LastTerrainDiff(); len(got.NewChunks) != len(big) {
		t.Fatalf("pending diff shrank to %d entries", len(got.NewChunks))
	}
}

func TestTakeLastTerrainDiffRegistrationFailurePreservesDiff(t *testing.T) {
	h := createCore(t, ConfigDefaults())
	inst, _ := lookupInstance(h)
	inst.core.InjectLastTerrainDiff(terrain.Diff{
		NewChunks:     []terrain.ChunkCoord{{X: 0, Y: 0}},
		RemovedChunks: []terrain.ChunkCoord{{X: 1, Y: 1}},
	})

	testForceRegisterFailure = func() bool { return true }
	defer func() { testForceRegisterFailure = nil }()

	before := bufferOwners.len()
	if _, res := CoreTakeLastTerrainDiff(h); res != ResultInternalError {
		t.Fatalf("take = %v, want ResultInternalError", res)
	}
	if bufferOwners.len() != before {
		t.Fatal("failed take leaked registry entries")
	}

	// The diff survives and succeeds once the failure clears.
	testForceRegisterFailure = nil
	diff, res := CoreTakeLastTerrainDiff(h)
	if res != ResultSuccess {
		t.Fatalf("retry take = %v", res)
	}
	defer FreeTerrainDiffBuffers(&diff)
	if diff.NewChunks.Len != 1 || diff.RemovedChunks.Len != 1 {
		t.Fatalf("retried diff = %+v", diff)
	}
}

func TestTimeOfDayFollowsCoefficient(t *testing.T) {
	cfg := ConfigDefaults()
	cfg.DayCycleCoefficient = 24.0
	h := createCore(t, cfg)

	if res := CoreTick(h, 0.5, false); res != ResultSuccess {
		t.Fatal("tick failed")
	}
	tod, res := CoreTimeOfDaySeconds(h)
	if res != ResultSuccess {
		t.Fatalf("CoreTimeOfDaySeconds = %v", res)
	}
	if math.Abs(tod-12.0) > 1e-9 {
		t.Fatalf("time of day = %v, want 12.0", tod)
	}
	prog, _ := CoreProgramTimeSeconds(h)
	if math.Abs(prog-0.5) > 1e-9 {
		t.Fatalf("program time = %v, want 0.5", prog)
	}
}
