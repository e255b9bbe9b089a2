package cmd

import (
	"bytes"
	"fmt"
	"runtime"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer/cpu"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the cpu tracers that the render command would attach and the rows of
// a frame that each one would receive.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	numTracers := max(ctx.Int("tracers"), 1)
	frameH := uint32(max(ctx.Int("height"), 1))

	tracers := make([]tracer.Tracer, 0, numTracers)
	defer func() {
		for _, tr := range tracers {
			tr.Close()
		}
	}()
	for index := 0; index < numTracers; index++ {
		tr, err := cpu.NewTracer(fmt.Sprintf("cpu-%d", index), ctx.Int("workers"), cpu.DefaultPipeline(cpu.PipelineOptions{}))
		if err != nil {
			return err
		}
		tracers = append(tracers, tr)
	}

	blockAssignments := tracer.NewPerfectScheduler().Schedule(tracers, frameH)

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("\nSystem provides %d cpu(s); GOMAXPROCS is %d\n\n", runtime.NumCPU(), runtime.GOMAXPROCS(0)))

	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Tracer", "Speed", "Block height", "% of frame"})
	for index, tr := range tracers {
		table.Append([]string{
			tr.Id(),
			fmt.Sprintf("%3.1f", tr.SpeedEstimate()),
			fmt.Sprint(blockAssignments[index]),
			fmt.Sprintf("%02.1f %%", 100*float32(blockAssignments[index])/float32(frameH)),
		})
	}
	table.Render()

	logger.Notice(buf.String())
	return nil
}
