package main

import (
	"math/rand"
	"time"

	"github.com/gopcua/opcua/ua"
	"github.com/rs/zerolog"

	"github.com/ioansiran/opcua-server/internal/addrspace"
	"github.com/ioansiran/opcua-server/internal/subscription"
	"github.com/ioansiran/opcua-server/internal/translate"
)

// demoSessionID is the single in-process session runServe opens for
// runDemoSession and tears down on shutdown.
const demoSessionID = 1

// runDemoSession drives one in-process session (opened by runServe) against
// the services built there, since this repo stops at the service layer and
// does not include a uacp/uasc binary transport (see internal/transport's
// doc comment). It subscribes to the Temperature variable, drives a value
// change every few seconds, and logs every PublishResponse as it completes
// — the same round trip a real client performs, minus the wire encoding.
func runDemoSession(log zerolog.Logger, token *ua.NodeID, scheduler *subscription.Scheduler, subService *subscription.Service, translateService *translate.Service, reader *addrspace.ValueReader) {
	temperature := ua.NewNumericNodeID(1, 4)
	translated := translateService.Translate([]*ua.BrowsePath{
		{StartingNode: ua.NewNumericNodeID(1, 3), RelativePath: &ua.RelativePath{
			Elements: []*ua.RelativePathElement{{TargetName: &ua.QualifiedName{Name: "Temperature"}}},
		}},
	})[0]
	if translated.StatusCode == ua.StatusOK {
		log.Debug().Str("resolved", translated.Targets[0].TargetID.NodeID.String()).Msg("translate demo check")
	}

	subResp := subService.CreateSubscription(demoSessionID, &ua.CreateSubscriptionRequest{PublishingEnabled: true})
	subService.CreateMonitoredItems(subResp.SubscriptionID, ua.TimestampsToReturnBoth, []*ua.MonitoredItemCreateRequest{
		{
			ItemToMonitor:       &ua.ReadValueID{NodeID: temperature, AttributeID: uint32(ua.AttributeIDValue)},
			RequestedParameters: &ua.MonitoringParameters{ClientHandle: 1},
		},
	})

	reader.SetValue(temperature, ua.MustVariant(int16(20)))

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			reader.SetValue(temperature, ua.MustVariant(int16(20+rand.Intn(5))))
		}
	}()

	go func() {
		// A real client keeps one PublishRequest outstanding at all times;
		// this demo approximates that by issuing a new one every publishing
		// interval without checking whether the previous one has completed;
		// the scheduler logs each completion itself (see completePublishLocked).
		for {
			if status := scheduler.BeginPublish(&ua.PublishRequest{RequestHeader: &ua.RequestHeader{AuthenticationToken: token}}); status != ua.StatusOK {
				log.Warn().Str("status", status.Error()).Msg("demo publish request failed")
			}
			time.Sleep(subscription.PublishingIntervalMS * time.Millisecond)
		}
	}()
}
