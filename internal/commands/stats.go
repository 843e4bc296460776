package commands

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"go-voicemaster/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

var botStartTime = time.Now()

// SystemStats holds host and process statistics
type SystemStats struct {
	Hostname string
	Platform string
	Uptime   time.Duration

	CPUModel   string
	CPUThreads int
	CPUUsage   float64

	TotalMemory   uint64
	UsedMemory    uint64
	MemoryPercent float64
	ProcessRSS    uint64

	GoVersion  string
	GoRoutines int
	NumGC      uint32

	BotUptime time.Duration
	Guilds    int
	Latency   time.Duration
}

// RoomStats describes the voice room workload
type RoomStats struct {
	ConfiguredGuilds int
	TrackedRooms     int
	SweepHealthy     bool
	Metrics          metrics.Snapshot
}

func (h *Handler) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}

	embeds := []*discordgo.MessageEmbed{
		systemEmbed(gatherSystemStats(s)),
		roomsEmbed(h.gatherRoomStats()),
	}

	_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds: &embeds,
	})
	return err
}

func gatherSystemStats(s *discordgo.Session) *SystemStats {
	stats := &SystemStats{}

	if hostInfo, err := host.Info(); err == nil {
		stats.Hostname = hostInfo.Hostname
		stats.Platform = hostInfo.Platform + " " + hostInfo.KernelArch
		stats.Uptime = time.Duration(hostInfo.Uptime) * time.Second
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		stats.CPUModel = cpuInfo[0].ModelName
	}
	stats.CPUThreads = runtime.NumCPU()
	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		stats.CPUUsage = pct[0]
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		stats.TotalMemory = memInfo.Total
		stats.UsedMemory = memInfo.Used
		stats.MemoryPercent = memInfo.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			stats.ProcessRSS = mi.RSS
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.GoVersion = runtime.Version()
	stats.GoRoutines = runtime.NumGoroutine()
	stats.NumGC = m.NumGC

	stats.BotUptime = time.Since(botStartTime)
	stats.Guilds = len(s.State.Guilds)
	stats.Latency = s.HeartbeatLatency()
	return stats
}

func (h *Handler) gatherRoomStats() RoomStats {
	var rs RoomStats
	if h.deps.Guilds != nil {
		rs.ConfiguredGuilds = h.deps.Guilds.Len()
	}
	if h.deps.Owners != nil {
		rs.TrackedRooms = h.deps.Owners.Len()
	}
	if h.deps.Watchdog != nil {
		rs.SweepHealthy = h.deps.Watchdog.AllHealthy()
	}
	if h.deps.Metrics != nil {
		rs.Metrics = h.deps.Metrics.Snapshot()
	}
	return rs
}

func systemEmbed(stats *SystemStats) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📊 System Statistics",
		Color: 0x00BFFF,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "🖥️ Host",
				Value: fmt.Sprintf("**Hostname:** `%s`\n**Platform:** `%s`\n**Uptime:** `%s`",
					stats.Hostname, stats.Platform, formatDuration(stats.Uptime)),
			},
			{
				Name: "⚡ CPU",
				Value: fmt.Sprintf("**Model:** `%s`\n**Threads:** `%d`\n**Usage:** `%.2f%%`\n%s",
					truncateString(stats.CPUModel, 40), stats.CPUThreads, stats.CPUUsage,
					createProgressBar(stats.CPUUsage, 100)),
				Inline: true,
			},
			{
				Name: "💾 Memory",
				Value: fmt.Sprintf("**Used:** `%s` / `%s`\n**Process RSS:** `%s`\n%s",
					formatBytes(stats.UsedMemory), formatBytes(stats.TotalMemory),
					formatBytes(stats.ProcessRSS), createProgressBar(stats.MemoryPercent, 100)),
				Inline: true,
			},
			{
				Name: "🤖 Bot",
				Value: fmt.Sprintf("**Uptime:** `%s`\n**Guilds:** `%d`\n**Latency:** `%dms`\n**Go:** `%s`, `%d` goroutines, `%d` GC cycles",
					formatDuration(stats.BotUptime), stats.Guilds, stats.Latency.Milliseconds(),
					stats.GoVersion, stats.GoRoutines, stats.NumGC),
			},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func roomsEmbed(rs RoomStats) *discordgo.MessageEmbed {
	sweep := "🟢 healthy"
	if !rs.SweepHealthy {
		sweep = "🔴 stalled"
	}
	m := rs.Metrics

	fields := []*discordgo.MessageEmbedField{
		{
			Name: "🔊 Rooms",
			Value: fmt.Sprintf("**Configured guilds:** `%d`\n**Active rooms:** `%d`\n**Sweep:** %s",
				rs.ConfiguredGuilds, rs.TrackedRooms, sweep),
			Inline: true,
		},
		{
			Name: "📈 Lifetime",
			Value: fmt.Sprintf("**Provisioned:** `%d` (`%d` failed)\n**Reaped:** `%d`\n**Commands:** `%d` (`%d` rejected)\n**Voice events:** `%d` (`%.2f/s`)",
				m.Provisioned, m.ProvisionFailed, m.Reaped, m.Commands, m.Rejected, m.VoiceEvents, m.VoiceEventRate),
			Inline: true,
		},
	}
	if lat := formatLatency(m.Latency); lat != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "⏱️ Discord API", Value: lat})
	}

	return &discordgo.MessageEmbed{
		Title:  "🎧 Voice Rooms",
		Color:  0x9370DB,
		Fields: fields,
	}
}

func formatLatency(stats map[string]metrics.LatencyStats) string {
	ops := make([]string, 0, len(stats))
	for op := range stats {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	var b strings.Builder
	for _, op := range ops {
		st := stats[op]
		if st.Count == 0 {
			continue
		}
		fmt.Fprintf(&b, "`%s` avg `%dms`, max `%dms`, `%d` calls, `%d` errors\n",
			op, st.Avg.Milliseconds(), st.Max.Milliseconds(), st.Count, st.Errors)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func createProgressBar(value, max float64) string {
	filled := int(value / max * 10)
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return "`" + strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + "`"
}

func truncateString(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
