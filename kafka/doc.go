// Package kafka connects the service to a Kafka cluster.
//
// Arrival notifications are read by kafka/consumer and handed to the trigger
// adapter; execution-finished events are written by kafka/producer. Both share
// the Config, TLS and SASL setup defined here, and Component runs them under
// the application lifecycle.
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "mediaflow"
//	  events_topic: "mediaflow.executions"
package kafka
