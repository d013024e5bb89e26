package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/emicklei/dot"
	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/dutfw/internal/lifecycle"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type exportFlags struct {
	json bool
	dot  bool
}

var (
	exportFlagSet = &exportFlags{}
)

var cmdExportStatemachine = &cobra.Command{
	Use:   "export-statemachine [--json|--dot]",
	Short: "Export the dutfw lifecycle statemachine, in the mermaid format by default",
	RunE: func(_ *cobra.Command, _ []string) error {
		out, err := exportStatemachine()
		if err != nil {
			return err
		}

		fmt.Println(out)

		return nil
	},
}

func asGraph(s *sw.StateMachineJSON) *dot.Graph {
	g := dot.NewGraph(dot.Directed)
	nodes := map[string]dot.Node{}

	for _, transition := range s.TransitionRules {
		_, exists := nodes[transition.DestinationState]
		if !exists {
			nodes[transition.DestinationState] = g.Node(transition.DestinationState)
		}

		for _, sourceState := range transition.SourceStates {
			_, exists := nodes[sourceState]
			if !exists {
				nodes[sourceState] = g.Node(sourceState)
			}

			g.Edge(nodes[sourceState], nodes[transition.DestinationState], transition.Name)
		}
	}

	return g
}

func exportStatemachine() (string, error) {
	// the lifecycle is described without a binder, nothing is run
	o := lifecycle.New(nil, logrus.NewEntry(logrus.New()))

	j, err := o.DescribeAsJSON()
	if err != nil {
		return "", err
	}

	if exportFlagSet.json {
		return string(j), nil
	}

	t := &sw.StateMachineJSON{}
	if err := json.Unmarshal(j, t); err != nil {
		return "", err
	}

	g := asGraph(t)

	if exportFlagSet.dot {
		return g.String(), nil
	}

	return dot.MermaidGraph(g, dot.MermaidTopDown), nil
}

func init() {
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.json, "json", "", false, "export the statemachine in the JSON format")
	cmdExportStatemachine.PersistentFlags().BoolVarP(&exportFlagSet.dot, "dot", "", false, "export the statemachine in the graphviz dot format")

	rootCmd.AddCommand(cmdExportStatemachine)
}
