// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymodel-workers/internal/common/camunda"
	"skymodel-workers/internal/common/logger"
	"skymodel-workers/internal/modeling"

	asm "skymodel-workers/internal/workers/modeling/assemble-sky-models"
)

const processID = "sky-model-assembly"

var zeebeClient zbc.Client

// A single service task bound to the assembly worker.
var processDefinition = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL"
    xmlns:zeebe="http://camunda.org/schema/zeebe/1.0"
    id="Definitions_SkyModels" targetNamespace="http://bpmn.io/schema/bpmn">
  <bpmn:process id="%s" isExecutable="true">
    <bpmn:startEvent id="start"><bpmn:outgoing>toAssemble</bpmn:outgoing></bpmn:startEvent>
    <bpmn:sequenceFlow id="toAssemble" sourceRef="start" targetRef="assemble"/>
    <bpmn:serviceTask id="assemble" name="Assemble sky models">
      <bpmn:extensionElements><zeebe:taskDefinition type="%s"/></bpmn:extensionElements>
      <bpmn:incoming>toAssemble</bpmn:incoming>
      <bpmn:outgoing>toEnd</bpmn:outgoing>
    </bpmn:serviceTask>
    <bpmn:sequenceFlow id="toEnd" sourceRef="assemble" targetRef="end"/>
    <bpmn:endEvent id="end"><bpmn:incoming>toEnd</bpmn:incoming></bpmn:endEvent>
  </bpmn:process>
</bpmn:definitions>
`, processID, asm.TaskType)

func TestMain(m *testing.M) {
	address := os.Getenv("ZEEBE_ADDRESS")
	if address == "" {
		fmt.Println("ZEEBE_ADDRESS not set, skipping E2E tests")
		os.Exit(0)
	}

	var err error
	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect to Zeebe: %v", err))
	}

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func TestAssembleSkyModels_Workflow(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	log := logger.NewTestLogger(t)
	handler, err := asm.NewHandler(asm.HandlerOptions{
		CustomConfig: asm.DefaultConfig(),
		Builder:      modeling.NewBuilder("", nil, nil, log),
		Logger:       log,
	})
	require.NoError(t, err)

	jw := camunda.StartWorker(zeebeClient, handler, camunda.WorkerOptions{
		MaxJobsActive: 1,
		Timeout:       30 * time.Second,
	}, log)
	require.NotNil(t, jw)
	defer jw.Close()

	_, err = zeebeClient.NewDeployResourceCommand().
		AddResource([]byte(processDefinition), "sky-model-assembly.bpmn").
		Send(ctx)
	require.NoError(t, err)

	cmd, err := zeebeClient.NewCreateInstanceCommand().
		BPMNProcessId(processID).
		LatestVersion().
		VariablesFromMap(map[string]interface{}{
			"target": map[string]interface{}{
				"source_name": "Mkn 421",
				"components": []interface{}{
					map[string]interface{}{
						"spectral": map[string]interface{}{
							"type": "PowerLawSpectralModel",
							"parameters": []interface{}{
								map[string]interface{}{"name": "index", "value": 2.2, "frozen": false},
							},
						},
					},
				},
			},
			"datasets": []interface{}{map[string]interface{}{"name": "magic-2017", "kind": "1d"}},
		})
	require.NoError(t, err)

	result, err := cmd.WithResult().Send(ctx)
	require.NoError(t, err)

	var vars map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(result.GetVariables()), &vars))

	assert.Equal(t, true, vars["skyModelsAssembled"])
	assert.Equal(t, true, vars["targetFromConfig"])
	assert.Equal(t, []interface{}{"Mkn 421"}, vars["skyModelNames"])
	assert.NotEmpty(t, vars["skyModelsRunId"])
}
