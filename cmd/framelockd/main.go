// framelockd drives the swap-group controller against the in-process
// driver and graphics simulations. It exists for bring-up and diagnosis on
// machines without frame-lock hardware: it boots a simulated cluster,
// warms the barrier up, presents a configurable number of frames and
// prints every node's status surface.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	framelock "github.com/Unity-Technologies/ClusterDisplay"
	drvsim "github.com/Unity-Technologies/ClusterDisplay/driver/sim"
	"github.com/Unity-Technologies/ClusterDisplay/native"
	gfxsim "github.com/Unity-Technologies/ClusterDisplay/native/sim"
)

const version = "0.2.0"

func main() {
	root := &cobra.Command{
		Use:   "framelockd",
		Short: "Swap-group controller diagnostics over a simulated cluster",
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the framelockd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("framelockd", version)
		},
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot a simulated cluster and present frames through the barrier",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().Int("nodes", 2, "number of simulated nodes")
	cmd.Flags().Int("frames", 8, "frames to present per node")
	cmd.Flags().Int("buffers", 3, "back buffers per swap chain")
	cmd.Flags().Int("warmup-presents", 2, "presents the barrier consumes before engaging")
	cmd.Flags().String("renderer", "explicit", "graphics API to simulate (immediate|explicit)")
	cmd.Flags().Bool("verbose", false, "write debug-level controller logs to stderr")

	_ = viper.BindPFlag("nodes", cmd.Flags().Lookup("nodes"))
	_ = viper.BindPFlag("frames", cmd.Flags().Lookup("frames"))
	_ = viper.BindPFlag("buffers", cmd.Flags().Lookup("buffers"))
	_ = viper.BindPFlag("warmup_presents", cmd.Flags().Lookup("warmup-presents"))
	_ = viper.BindPFlag("renderer", cmd.Flags().Lookup("renderer"))
	_ = viper.BindPFlag("verbose", cmd.Flags().Lookup("verbose"))

	return cmd
}

// node bundles one simulated workstation.
type node struct {
	plugin  *framelock.Plugin
	binding *gfxsim.Binding
}

func run(cfg *Config) error {
	if cfg.Verbose {
		framelock.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	var renderer native.Renderer
	switch cfg.Renderer {
	case "immediate":
		renderer = native.RendererImmediate
	case "explicit":
		renderer = native.RendererExplicit
	default:
		return fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}

	cluster := drvsim.New(
		drvsim.WithLimits(1, 1),
		drvsim.WithEngagedAfter(cfg.WarmupPresents),
	)

	nodes := make([]*node, 0, cfg.Nodes)
	for i := 0; i < cfg.Nodes; i++ {
		binding := gfxsim.NewBinding(renderer, 640, 360, cfg.Buffers)
		binding.Sync = cfg.SyncInterval

		plugin := framelock.NewPlugin(cluster)
		plugin.Client().SetMaster(i == 0 && cfg.Master)
		plugin.Client().SetWarmupOracle(func() framelock.WarmupAction {
			if cluster.BarrierEngaged(binding.Dev) {
				return framelock.BarrierWarmedUp
			}
			return framelock.RepeatPresent
		})

		plugin.OnDeviceEvent(framelock.DeviceEventInitialize, binding)
		plugin.OnRenderEvent(framelock.EventInitialize, nil)
		nodes = append(nodes, &node{plugin: plugin, binding: binding})
	}

	for frame := 0; frame < cfg.Frames; frame++ {
		for _, n := range nodes {
			if n.plugin.ShouldOverridePresent() {
				n.plugin.PresentFrame()
			}
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tSTATE\tGROUP\tBARRIER\tPRESENTED\tFAILED")
	for _, n := range nodes {
		s := n.plugin.StatusSnapshot()
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			s.NodeID[:8], s.InitializationState, s.SwapGroupID, s.SwapBarrierID,
			s.PresentedFramesSuccess, s.PresentedFramesFailed)
	}
	fmt.Fprintf(w, "\ncluster frame count\t%d\n", cluster.FrameCount())
	return w.Flush()
}
