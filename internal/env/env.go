package env

import (
	"fmt"
	"os"
	"strings"
)

const (
	AWSRegion        = "AWS_REGION"
	AWSID            = "AWS_ID"
	AWSSecret        = "AWS_SECRET"
	AWSToken         = "AWS_TOKEN"
	DynamoDBEndpoint = "DYNAMODB_ENDPOINT"
	DirectoryBackend = "DIRECTORY_BACKEND"
	SQLitePath       = "SQLITE_PATH"
	OperatorSecret   = "OPERATOR_SECRET"
	AuthRedisURL     = "AUTH_REDIS_URL"
	AuthRedisPass    = "AUTH_REDIS_PASS"
	FlowRedisURL     = "FLOW_REDIS_URL"
	FlowRedisPass    = "FLOW_REDIS_PASS"
	AlertsRedisURL   = "ALERTS_REDIS_URL"
	AlertsRedisPass  = "ALERTS_REDIS_PASS"
	AMQPURL          = "AMQP_URL"
	AMQPExchange     = "AMQP_EXCHANGE"
	WhatsAppToken    = "WHATSAPP_ACCESS_TOKEN"
	WhatsAppPhoneID  = "WHATSAPP_PHONE_NUMBER_ID"
	WhatsAppVersion  = "WHATSAPP_API_VERSION"
	WhatsAppVerify   = "WHATSAPP_VERIFY_TOKEN"
	WhatsAppSecret   = "WHATSAPP_APP_SECRET"
	PolicyFile       = "POLICY_FILE"
	ListenAddr       = "LISTEN_ADDR"
	WSListenAddr     = "WS_LISTEN_ADDR"
	LogLevel         = "LOG_LEVEL"
	AllowedOrigins   = "ALLOWED_ORIGINS"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"
)

// Require reports every key in keys that is unset.
func Require(keys ...string) error {
	var missing []string
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("env: required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

func Get(key string) string {
	return os.Getenv(key)
}

func GetOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func MustGet(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic("env: required environment variable not set: " + key)
	}
	return val
}

// List splits a comma separated value, dropping empty items.
func List(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
