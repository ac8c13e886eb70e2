/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package collector

import (
	"fmt"

	"github.com/routerwatch/routerwatch/pkg/models"
)

// Event is one alert-worthy transition found by a diff pass. Events carry
// no device context or timestamps; the caller adds those when persisting.
type Event struct {
	Severity models.AlertSeverity
	Source   string
	Message  string
}

// interfaceUp is the one definition of "up" used everywhere: operationally
// running and administratively enabled.
func interfaceUp(i *models.Interface) bool {
	return i.Running && !i.Disabled
}

// diffInterfaces reports interfaces that went down between two snapshots.
// An interface that disappears entirely raises nothing; removal is a
// configuration act, not a fault.
func diffInterfaces(previous, current []*models.Interface) []Event {
	currentByName := make(map[string]*models.Interface, len(current))
	for _, i := range current {
		currentByName[i.Name] = i
	}

	var events []Event

	for _, old := range previous {
		now, ok := currentByName[old.Name]
		if !ok {
			continue
		}

		if interfaceUp(old) && !interfaceUp(now) {
			events = append(events, Event{
				Severity: models.SeverityWarning,
				Source:   models.AlertSourceInterface,
				Message:  fmt.Sprintf("Interface %s is down", old.Name),
			})
		}
	}

	return events
}

// diffWireless reports activity flips on local wireless interfaces.
func diffWireless(previous, current []*models.WirelessInterface) []Event {
	currentByName := make(map[string]*models.WirelessInterface, len(current))
	for _, w := range current {
		currentByName[w.Name] = w
	}

	var events []Event

	for _, old := range previous {
		now, ok := currentByName[old.Name]
		if !ok || old.IsActive == now.IsActive {
			continue
		}

		if now.IsActive {
			events = append(events, Event{
				Severity: models.SeverityInfo,
				Source:   models.AlertSourceWireless,
				Message:  fmt.Sprintf("Wireless interface %s is now active", old.Name),
			})
		} else {
			events = append(events, Event{
				Severity: models.SeverityWarning,
				Source:   models.AlertSourceWireless,
				Message:  fmt.Sprintf("Wireless interface %s is no longer active", old.Name),
			})
		}
	}

	return events
}

// capsmanStateSeverity grades an AP state transition by where it landed.
func capsmanStateSeverity(state string) models.AlertSeverity {
	switch state {
	case "running":
		return models.SeverityInfo
	case "disabled":
		return models.SeverityWarning
	default:
		return models.SeverityError
	}
}

// diffCapsmanAPs reports controller-managed APs whose state changed. The
// message carries both states verbatim so operators see exactly what the
// controller reported.
func diffCapsmanAPs(previous, current []*models.CapsmanAP) []Event {
	currentByName := make(map[string]*models.CapsmanAP, len(current))
	for _, ap := range current {
		currentByName[ap.Name] = ap
	}

	var events []Event

	for _, old := range previous {
		now, ok := currentByName[old.Name]
		if !ok || old.State == now.State {
			continue
		}

		events = append(events, Event{
			Severity: capsmanStateSeverity(now.State),
			Source:   models.AlertSourceCapsman,
			Message:  fmt.Sprintf("CAPsMAN AP %s changed state from %s to %s", old.Name, old.State, now.State),
		})
	}

	return events
}

// diffCapsmanClients reports clients joining or leaving an AP. This is
// the one place absence alerts: a MAC vanishing from the registration
// table is the only disconnect signal CAPsMAN gives.
func diffCapsmanClients(previous, current []*models.CapsmanClient, apName string) []Event {
	previousByMAC := make(map[string]*models.CapsmanClient, len(previous))
	for _, c := range previous {
		previousByMAC[c.MACAddress] = c
	}

	currentByMAC := make(map[string]*models.CapsmanClient, len(current))
	for _, c := range current {
		currentByMAC[c.MACAddress] = c
	}

	var events []Event

	for _, c := range current {
		if _, ok := previousByMAC[c.MACAddress]; !ok {
			events = append(events, Event{
				Severity: models.SeverityInfo,
				Source:   models.AlertSourceCapsman,
				Message:  fmt.Sprintf("Client %s connected to AP %s", c.MACAddress, apName),
			})
		}
	}

	for _, c := range previous {
		if _, ok := currentByMAC[c.MACAddress]; !ok {
			events = append(events, Event{
				Severity: models.SeverityInfo,
				Source:   models.AlertSourceCapsman,
				Message:  fmt.Sprintf("Client %s disconnected from AP %s", c.MACAddress, apName),
			})
		}
	}

	return events
}
