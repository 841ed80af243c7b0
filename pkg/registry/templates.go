package registry

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/robfig/cron/v3"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// RegisterDefaultTemplates installs the built-in step catalog.
func (r *Registry) RegisterDefaultTemplates() {
	r.Register(webhookTriggerTemplate(), nil)
	r.Register(schedulerTriggerTemplate(), checkSchedulerConfig)
	r.Register(queueTriggerTemplate(), nil)
	r.Register(httpRequestTemplate(), nil)
	r.Register(transformTemplate(), nil)
	r.Register(logTemplate(), nil)
	r.Register(conditionTemplate(), checkConditionConfig)
	r.Register(aiCompletionTemplate(), nil)
}

func webhookTriggerTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:        models.NodeTypeTriggerWebhook,
		Category:    models.CategoryTypeTrigger,
		Name:        "Webhook Trigger",
		Description: "Starts the workflow when an HTTP request arrives at the webhook endpoint",
		Outputs: []models.PortSpec{
			{Name: "payload", Description: "Request body and headers"},
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "URL path segment the webhook listens on",
					"examples":    []string{"/hooks/new-lead", "/hooks/deal-closed"},
				},
				"method": map[string]any{
					"type":        "string",
					"description": "HTTP method accepted by the webhook",
					"enum":        []string{"GET", "POST", "PUT"},
					"default":     "POST",
				},
			},
			"required": []any{"path"},
		},
	}
}

func schedulerTriggerTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:        models.NodeTypeTriggerScheduler,
		Category:    models.CategoryTypeTrigger,
		Name:        "Scheduler Trigger",
		Description: "Starts the workflow on a cron schedule",
		Outputs: []models.PortSpec{
			{Name: "tick", Description: "Scheduled activation time"},
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"cron": map[string]any{
					"type":        "string",
					"description": "Standard five-field cron expression",
					"examples":    []string{"0 9 * * 1-5", "*/15 * * * *"},
				},
				"timezone": map[string]any{
					"type":        "string",
					"description": "IANA timezone name for schedule evaluation",
					"default":     "UTC",
				},
			},
			"required": []any{"cron"},
		},
	}
}

func queueTriggerTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:        models.NodeTypeTriggerQueue,
		Category:    models.CategoryTypeTrigger,
		Name:        "Queue Trigger",
		Description: "Starts the workflow when a message lands on a queue topic",
		Outputs: []models.PortSpec{
			{Name: "message", Description: "Decoded queue message"},
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"topic": map[string]any{
					"type":        "string",
					"description": "Topic or queue name to consume",
				},
				"consumer_group": map[string]any{
					"type":        "string",
					"description": "Consumer group id; defaults to the workflow id",
				},
			},
			"required": []any{"topic"},
		},
	}
}

func httpRequestTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:        models.NodeTypeHTTPRequest,
		Category:    models.CategoryTypeAction,
		Name:        "HTTP Request",
		Description: "Calls an external HTTP endpoint and exposes the response to later steps",
		Inputs: []models.PortSpec{
			{Name: "input", Description: "Upstream step output"},
		},
		Outputs: []models.PortSpec{
			{Name: "response", Description: "Status, headers, and parsed body"},
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "Request URL. Supports templating with run context data.",
					"examples":    []string{"https://api.example.com/customers/{{.variables.customer_id}}"},
				},
				"method": map[string]any{
					"type":    "string",
					"enum":    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
					"default": "GET",
				},
				"headers": map[string]any{
					"type":        "object",
					"description": "Request headers",
				},
				"body": map[string]any{
					"type":        "string",
					"description": "Request body template",
				},
				"timeout_seconds": map[string]any{
					"type":    "integer",
					"default": 30,
				},
			},
			"required": []any{"url"},
		},
	}
}

func transformTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:        models.NodeTypeTransform,
		Category:    models.CategoryTypeAction,
		Name:        "Transform",
		Description: "Reshapes upstream data with a field mapping",
		Inputs: []models.PortSpec{
			{Name: "input", Description: "Data to transform"},
		},
		Outputs: []models.PortSpec{
			{Name: "output", Description: "Transformed data"},
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mapping": map[string]any{
					"type":        "object",
					"description": "Output field to source expression mapping",
				},
			},
			"required": []any{"mapping"},
		},
	}
}

func logTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:        models.NodeTypeLog,
		Category:    models.CategoryTypeAction,
		Name:        "Log",
		Description: "Writes a message to the run log",
		Inputs: []models.PortSpec{
			{Name: "input", Description: "Upstream step output"},
		},
		Outputs: []models.PortSpec{
			{Name: "output", Description: "Pass-through of the input"},
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "Message to log. Supports templating with run context data.",
					"examples":    []string{"Processing customer {{.variables.customer_name}}"},
				},
				"level": map[string]any{
					"type":    "string",
					"enum":    []string{"debug", "info", "warn", "error"},
					"default": "info",
				},
			},
			"required": []any{"message"},
		},
	}
}

func conditionTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:        models.NodeTypeCondition,
		Category:    models.CategoryTypeCondition,
		Name:        "Condition",
		Description: "Routes the run down the true or false branch of a boolean expression",
		Inputs: []models.PortSpec{
			{Name: "input", Description: "Data the expression is evaluated against"},
		},
		Outputs: []models.PortSpec{
			{Name: "true", Description: "Taken when the expression is true"},
			{Name: "false", Description: "Taken when the expression is false"},
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "Boolean expression over the run context",
					"examples":    []string{`status == "won" && amount > 1000`},
				},
			},
			"required": []any{"expression"},
		},
	}
}

func aiCompletionTemplate() *models.NodeTemplate {
	return &models.NodeTemplate{
		Type:        models.NodeTypeAICompletion,
		Category:    models.CategoryTypeAI,
		Name:        "AI Completion",
		Description: "Generates text from a prompt template using the configured model",
		Inputs: []models.PortSpec{
			{Name: "input", Description: "Data available to the prompt template"},
		},
		Outputs: []models.PortSpec{
			{Name: "completion", Description: "Generated text"},
		},
		ConfigSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "Prompt template. Supports templating with run context data.",
				},
				"model": map[string]any{
					"type":    "string",
					"default": "default",
				},
				"max_tokens": map[string]any{
					"type":    "integer",
					"default": 1024,
				},
			},
			"required": []any{"prompt"},
		},
	}
}

// checkSchedulerConfig parses the cron expression with the standard five-field
// parser.
func checkSchedulerConfig(config map[string]any) error {
	raw, ok := config["cron"]
	if !ok {
		return nil // presence is the schema's concern
	}

	spec, ok := raw.(string)
	if !ok {
		return errors.New("cron must be a string")
	}

	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}

	return nil
}

// checkConditionConfig compiles the expression so syntax errors surface at
// edit time rather than mid-run.
func checkConditionConfig(config map[string]any) error {
	raw, ok := config["expression"]
	if !ok {
		return nil
	}

	source, ok := raw.(string)
	if !ok {
		return errors.New("expression must be a string")
	}

	if _, err := expr.Compile(source, expr.AllowUndefinedVariables()); err != nil {
		return fmt.Errorf("invalid expression: %w", err)
	}

	return nil
}
