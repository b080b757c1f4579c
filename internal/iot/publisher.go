// Package iot connects the service to spot devices through AWS IoT Core:
// commands go out over the IoT Data Plane, device events come back through
// an IoT rule into an SQS queue.
package iot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/upload"
)

// DataPlaneAPI is the part of the IoT Data Plane client used here.
type DataPlaneAPI interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

type Publisher struct {
	client      DataPlaneAPI
	topicPrefix string
	logger      *zap.Logger
}

func NewPublisher(client DataPlaneAPI, topicPrefix string, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, topicPrefix: topicPrefix, logger: logger.Named("iot_publisher")}
}

// PlateCheckTopic is the MQTT topic the device of spotCode subscribes to.
func (p *Publisher) PlateCheckTopic(spotCode string) string {
	return fmt.Sprintf("%s/spots/%s/plate-check", p.topicPrefix, upload.SanitizeSpotCode(spotCode))
}

func (p *Publisher) PublishPlateCheck(ctx context.Context, check *domain.PlateCheck) error {
	payload, err := json.Marshal(domain.PlateCheckCommandPayload{
		CheckID:       check.ID.String(),
		SpotCode:      check.SpotCode,
		DetectedPlate: check.DetectedPlate.String,
		Matched:       check.Matched,
		SimilarityPct: check.SimilarityPercent,
	})
	if err != nil {
		return fmt.Errorf("marshal plate check payload: %w", err)
	}

	topic := p.PlateCheckTopic(check.SpotCode)
	_, err = p.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.logger.Debug("plate check published", zap.String("topic", topic), zap.Stringer("check_id", check.ID))
	return nil
}
