package cloud

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/config"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/ml"
)

// ArtifactStore builds the model artifact store selected by MODEL_STORE.
func ArtifactStore(ctx context.Context) (ml.ArtifactStore, error) {
	switch kind := config.ModelStore(); kind {
	case "", "file":
		return ml.NewFileStore(config.ModelDir()), nil
	case "s3":
		return NewS3ArtifactStore(ctx, config.AWSRegion(), config.S3Bucket(), "models/")
	case "minio":
		return NewMinIOArtifactStore(ctx, config.MinIOConfig())
	default:
		return nil, fmt.Errorf("unknown MODEL_STORE %q (want file, s3 or minio)", kind)
	}
}

// AlertSinks wires DynamoDB alert history and, when a topic is configured, SNS.
func AlertSinks(ctx context.Context) (Fanout, *DynamoDBClient, error) {
	history, err := NewDynamoDBClient(ctx, config.AWSRegion(), config.AlertsTable())
	if err != nil {
		return nil, nil, err
	}
	sinks := Fanout{history}

	if arn := config.SNSTopicArn(); arn != "" {
		sns, err := NewSNSClient(ctx, config.AWSRegion(), arn)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sns)
	} else {
		log.Warn().Msg("AWS_SNS_TOPIC_ARN not set; alerts are stored but not published")
	}
	return sinks, history, nil
}
