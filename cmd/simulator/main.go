package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/config"
	"github.com/ANIKETSHETTY47/machine-energy-insights/internal/domain"
)

type machine struct {
	id      string
	model   string
	ratedKW float64
}

var fleet = []machine{
	{"M1", "CNC-500", 45},
	{"M2", "Press-220", 90},
	{"M3", "Lathe-80", 25},
}

var shifts = []string{"A", "B", "C"}

func reading(m machine, ts time.Time) domain.EnergyRecord {
	load := 40 + rand.Float64()*60
	power := m.ratedKW * load / 100
	energy := power * (0.5 + rand.Float64()*0.5)
	idle := load < 50
	status := "Running"
	if idle {
		status = "Idle"
	}
	tariff := 7.5
	output := energy * (0.6 + rand.Float64()*0.4)
	anomaly := int64(0)
	// occasional surge
	if rand.IntN(50) == 0 {
		power *= 1.8
		anomaly = 1
	}
	downtime := float64(rand.IntN(15))

	return domain.EnergyRecord{
		MachineID:          &m.id,
		MachineModel:       &m.model,
		RatedCapacityKW:    &m.ratedKW,
		Timestamp:          &ts,
		Shift:              &shifts[ts.Hour()/8],
		OperatorID:         ptr(fmt.Sprintf("OP-%02d", rand.IntN(12)+1)),
		PowerKW:            &power,
		EnergyKWh:          &energy,
		LoadPercent:        &load,
		PowerFactor:        ptr(0.85 + rand.Float64()*0.13),
		Temperature:        ptr(35 + load*0.4 + rand.Float64()*5),
		AmbientTemperature: ptr(24 + rand.Float64()*8),
		ProductionOutput:   &output,
		OperatingStatus:    &status,
		IdleFlag:           &idle,
		ElectricityTariff:  &tariff,
		CO2Emission:        ptr(energy * 0.82),
		TrueAnomalyLabel:   &anomaly,
		DowntimeMinutes:    &downtime,
	}
}

func ptr[T any](v T) *T { return &v }

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	config.SetupLogging()

	opts := mqtt.NewClientOptions().AddBroker(config.MQTTBroker()).SetClientID("energy-simulator")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	topic := config.MQTTTopic()
	for i := 0; i < 100; i++ {
		now := time.Now().UTC()
		batch := make([]domain.EnergyRecord, len(fleet))
		for j, m := range fleet {
			batch[j] = reading(m, now)
		}
		payload, err := json.Marshal(batch)
		if err != nil {
			log.Fatal().Err(err).Msg("encode batch")
		}
		token := client.Publish(topic, 1, false, payload)
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Msg("publish failed")
		}
		time.Sleep(500 * time.Millisecond)
	}
	log.Info().Str("topic", topic).Msg("simulation done")
}
