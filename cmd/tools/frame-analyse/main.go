// Package main provides an offline analysis tool for captured panel
// telemetry. It reassembles the newline and length-prefixed frames from the
// TCP streams in a PCAP capture, classifies and decodes each frame, and
// prints per-dialect and per-condition tallies for connectivity debugging.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/panel.preview/internal/payload"
	"github.com/banshee-data/panel.preview/internal/serialmux"
)

// Config holds configuration for the capture analysis.
type Config struct {
	PCAPFile   string
	TCPPort    int
	ExportJSON string
	Verbose    bool
}

// FlowResult holds the per-flow frame tallies.
type FlowResult struct {
	Flow        string         `json:"flow"`
	Bytes       int            `json:"bytes"`
	Frames      int            `json:"frames"`
	ByKind      map[string]int `json:"frames_by_kind"`
	ByClass     map[string]int `json:"frames_by_class"`
	ByCondition map[string]int `json:"frames_by_condition"`
	Readings    int            `json:"readings"`
}

// AnalysisResult is the full output of a capture run.
type AnalysisResult struct {
	PCAPFile     string        `json:"pcap_file"`
	Duration     float64       `json:"capture_secs"`
	TotalPackets int           `json:"total_packets"`
	TCPPackets   int           `json:"tcp_packets"`
	Flows        []*FlowResult `json:"flows"`
}

func main() {
	config := parseFlags()

	if config.PCAPFile == "" {
		fmt.Fprintln(os.Stderr, "Error: PCAP file is required")
		flag.Usage()
		os.Exit(1)
	}
	if _, err := os.Stat(config.PCAPFile); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: PCAP file not found: %s\n", config.PCAPFile)
		os.Exit(1)
	}

	result, err := analyzeCapture(config)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	printSummary(result)

	if config.ExportJSON != "" {
		if err := exportJSON(config.ExportJSON, result); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("\nResults written to %s\n", config.ExportJSON)
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.PCAPFile, "pcap", "", "Path to PCAP file (required)")
	flag.IntVar(&config.TCPPort, "port", 8080, "TCP port carrying panel payload traffic")
	flag.StringVar(&config.ExportJSON, "json", "", "Write full results to a JSON file")
	flag.BoolVar(&config.Verbose, "v", false, "Log every decoded frame")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Frame Analysis Tool for Captured Panel Telemetry\n\n")
		fmt.Fprintf(os.Stderr, "This tool processes a PCAP capture of panel traffic:\n")
		fmt.Fprintf(os.Stderr, "  1. Extract TCP payload bytes per flow on the given port\n")
		fmt.Fprintf(os.Stderr, "  2. Reassemble newline and length-prefixed frames\n")
		fmt.Fprintf(os.Stderr, "  3. Classify each frame (sensor/config/status) and decode sensor payloads\n")
		fmt.Fprintf(os.Stderr, "  4. Report per-dialect and per-condition tallies\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	return config
}

// analyzeCapture walks the capture once, appending TCP payload bytes per flow,
// then scans each assembled stream for frames. Capture files from the panel
// bench are short and in order, so no sequence-number reassembly is done.
func analyzeCapture(config Config) (*AnalysisResult, error) {
	f, err := os.Open(config.PCAPFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCAP file: %w", err)
	}
	defer f.Close()

	reader, err := pcapgo.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read PCAP header: %w", err)
	}

	result := &AnalysisResult{PCAPFile: config.PCAPFile}
	streams := make(map[string]*bytes.Buffer)
	var firstTS, lastTS time.Time

	for {
		data, ci, err := reader.ReadPacketData()
		if err != nil {
			break // io.EOF or a truncated trailing record
		}
		result.TotalPackets++
		if firstTS.IsZero() {
			firstTS = ci.Timestamp
		}
		lastTS = ci.Timestamp

		packet := gopacket.NewPacket(data, reader.LinkType(), gopacket.Lazy)
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			continue
		}
		tcp, ok := tcpLayer.(*layers.TCP)
		if !ok {
			continue
		}
		if int(tcp.SrcPort) != config.TCPPort && int(tcp.DstPort) != config.TCPPort {
			continue
		}
		result.TCPPackets++
		if len(tcp.Payload) == 0 {
			continue
		}

		flow := packet.NetworkLayer().NetworkFlow().String() + " " + tcp.TransportFlow().String()
		buf, ok := streams[flow]
		if !ok {
			buf = &bytes.Buffer{}
			streams[flow] = buf
		}
		buf.Write(tcp.Payload)
	}
	if !lastTS.IsZero() {
		result.Duration = lastTS.Sub(firstTS).Seconds()
	}

	for flow, buf := range streams {
		result.Flows = append(result.Flows, analyzeStream(flow, buf.Bytes(), config.Verbose))
	}
	sort.Slice(result.Flows, func(i, j int) bool {
		return result.Flows[i].Flow < result.Flows[j].Flow
	})
	return result, nil
}

// analyzeStream runs the tether frame scanner over one flow's byte stream and
// tallies what the decoder makes of each frame.
func analyzeStream(flow string, stream []byte, verbose bool) *FlowResult {
	fr := &FlowResult{
		Flow:        flow,
		Bytes:       len(stream),
		ByKind:      make(map[string]int),
		ByClass:     make(map[string]int),
		ByCondition: make(map[string]int),
	}

	scan := bufio.NewScanner(bytes.NewReader(stream))
	scan.Split(serialmux.ScanFrames)
	scan.Buffer(make([]byte, 0, 64*1024), len(stream)+64)

	for scan.Scan() {
		fr.Frames++
		raw := scan.Text()

		body, kind := payload.Strip(raw)
		fr.ByKind[kind.String()]++

		class := payload.Classify(body)
		fr.ByClass[class]++
		if class != payload.EventTypeSensor {
			continue
		}

		decoded := payload.DecodeRaw(raw)
		fr.ByCondition[decoded.Condition.String()]++
		fr.Readings += len(decoded.Readings)
		if verbose {
			log.Printf("frame %d: kind=%s condition=%s readings=%d",
				fr.Frames, kind, decoded.Condition, len(decoded.Readings))
		}
	}
	if err := scan.Err(); err != nil {
		log.Printf("flow %s: scan stopped: %v", flow, err)
	}
	return fr
}

func printSummary(result *AnalysisResult) {
	fmt.Println("\n========== Capture Analysis Summary ==========")
	fmt.Printf("File: %s\n", result.PCAPFile)
	fmt.Printf("Capture span: %.1f seconds\n", result.Duration)
	fmt.Printf("Packets: %d total, %d TCP on port\n", result.TotalPackets, result.TCPPackets)
	fmt.Printf("Flows: %d\n", len(result.Flows))

	for _, fr := range result.Flows {
		fmt.Printf("\nFlow %s (%d bytes, %d frames, %d readings)\n",
			fr.Flow, fr.Bytes, fr.Frames, fr.Readings)
		printTally("Framing", fr.ByKind, fr.Frames)
		printTally("Class", fr.ByClass, fr.Frames)
		printTally("Condition", fr.ByCondition, fr.Frames)
	}
}

func printTally(label string, tally map[string]int, total int) {
	if len(tally) == 0 {
		return
	}
	keys := make([]string, 0, len(tally))
	for k := range tally {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Printf("  %s:\n", label)
	for _, k := range keys {
		pct := 100 * float64(tally[k]) / float64(total)
		fmt.Printf("    %s: %d (%.1f%%)\n", k, tally[k], pct)
	}
}

func exportJSON(path string, result *AnalysisResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
