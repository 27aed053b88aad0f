package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// sectionRecord is the on-disk shape of a Section; items are kept as raw nodes so the
// kind discriminator can be read before decoding into a concrete type.
type sectionRecord struct {
	ID       string      `yaml:"id"`
	Name     string      `yaml:"name"`
	Priority Priority    `yaml:"priority"`
	Items    []yaml.Node `yaml:"items"`
}

// MarshalYAML writes each item as a mapping with a leading "kind" key
func (s Section) MarshalYAML() (interface{}, error) {
	record := sectionRecord{
		ID:       s.ID,
		Name:     s.Name,
		Priority: s.Priority,
		Items:    make([]yaml.Node, 0, len(s.Items)),
	}

	for i, item := range s.Items {
		var node yaml.Node
		if err := node.Encode(item); err != nil {
			return nil, fmt.Errorf("failed to encode item %d of section %s: %w", i, s.Name, err)
		}
		kindKey := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "kind"}
		kindValue := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(item.Kind())}
		node.Content = append([]*yaml.Node{kindKey, kindValue}, node.Content...)
		record.Items = append(record.Items, node)
	}

	return record, nil
}

// UnmarshalYAML decodes items by their "kind" key. Items without one are inferred
// from the fields they carry, so hand-written documents still load.
func (s *Section) UnmarshalYAML(value *yaml.Node) error {
	var record sectionRecord
	if err := value.Decode(&record); err != nil {
		return err
	}

	s.ID = record.ID
	s.Name = record.Name
	s.Priority = record.Priority
	s.Items = make([]Item, 0, len(record.Items))

	for i := range record.Items {
		node := &record.Items[i]
		if node.Kind != yaml.MappingNode {
			return fmt.Errorf("section %s item %d: expected mapping, got %s", record.Name, i, node.ShortTag())
		}
		item, err := decodeItem(node)
		if err != nil {
			return fmt.Errorf("section %s item %d: %w", record.Name, i, err)
		}
		s.Items = append(s.Items, item)
	}

	return nil
}

func decodeItem(node *yaml.Node) (Item, error) {
	kind := ItemKind(mappingValue(node, "kind"))
	if kind == "" {
		kind = inferKind(node)
	}

	switch kind {
	case ItemKindWeather:
		var item WeatherItem
		err := node.Decode(&item)
		return item, err
	case ItemKindAirQuality:
		var item AirQualityItem
		err := node.Decode(&item)
		return item, err
	case ItemKindEarthquake:
		var item EarthquakeItem
		err := node.Decode(&item)
		return item, err
	case ItemKindPlaceholder:
		var item PlaceholderItem
		err := node.Decode(&item)
		return item, err
	case ItemKindNews:
		var item NewsItem
		err := node.Decode(&item)
		return item, err
	default:
		return nil, fmt.Errorf("unknown item kind %q", kind)
	}
}

func inferKind(node *yaml.Node) ItemKind {
	switch {
	case mappingValue(node, "aqi") != "":
		return ItemKindAirQuality
	case mappingValue(node, "temp") != "" || mappingValue(node, "humidity") != "":
		return ItemKindWeather
	default:
		return ItemKindNews
	}
}

// mappingValue returns the scalar value stored under key, or ""
func mappingValue(node *yaml.Node, key string) string {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key && node.Content[i+1].Kind == yaml.ScalarNode {
			return node.Content[i+1].Value
		}
	}
	return ""
}
