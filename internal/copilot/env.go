package copilot

import (
	"fmt"
	"os"
)

// ServiceName returns "<app>-<env>-<svc>" when running under Copilot and
// fallback otherwise.
func ServiceName(fallback string) string {
	app, ok := os.LookupEnv("COPILOT_APPLICATION_NAME")
	if !ok {
		return fallback
	}

	env, ok := os.LookupEnv("COPILOT_ENVIRONMENT_NAME")
	if !ok {
		return fallback
	}

	svc, ok := os.LookupEnv("COPILOT_SERVICE_NAME")
	if !ok {
		return fallback
	}

	return fmt.Sprintf("%s-%s-%s", app, env, svc)
}

func App() string {
	return os.Getenv("COPILOT_APPLICATION_NAME")
}

func Environment() string {
	return os.Getenv("COPILOT_ENVIRONMENT_NAME")
}

// QueueURI is the URL of the SQS queue Copilot provisions for worker services.
func QueueURI() string {
	return os.Getenv("COPILOT_QUEUE_URI")
}

// ServiceURL builds the service-discovery address of another service in the
// same Copilot application and environment.
func ServiceURL(svc string, port int, path string) string {
	return fmt.Sprintf("http://%s.%s.%s.local:%d%s", svc, Environment(), App(), port, path)
}
