//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package query

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dictionary holds the domain vocabulary used for expansion and
// classification. An Expander copies it at construction; later changes to the
// Dictionary value do not affect the Expander.
type Dictionary struct {
	// Synonyms maps a domain term (one or more words) to alternative phrasings.
	Synonyms map[string][]string `yaml:"synonyms"`

	// Acronyms maps an acronym to its full form.
	Acronyms map[string]string `yaml:"acronyms"`

	// QuestionPatterns maps a question opener to its rewrites.
	QuestionPatterns map[string][]string `yaml:"question_patterns"`

	// AmbiguousTerms maps a broad word to narrower alternatives suggested to
	// the learner.
	AmbiguousTerms map[string][]string `yaml:"ambiguous_terms"`

	// MechanismTerms get a "how does X work" related query.
	MechanismTerms []string `yaml:"mechanism_terms"`

	// TutorialTerms get an "X tutorial" related query.
	TutorialTerms []string `yaml:"tutorial_terms"`

	// TradeoffTerms get "advantages of X" and "disadvantages of X" related queries.
	TradeoffTerms []string `yaml:"tradeoff_terms"`
}

// DefaultDictionary returns the Physical AI and humanoid robotics vocabulary.
// Each call returns a fresh value.
func DefaultDictionary() *Dictionary {
	return &Dictionary{
		Synonyms: map[string][]string{
			"physical ai":    {"embodied ai", "robotic ai", "ai in robotics"},
			"humanoid robot": {"humanoid", "biped robot", "android", "anthropomorphic robot"},
			"ros":            {"robot operating system", "ros2", "robot os"},
			"gazebo":         {"gazebo simulator", "robot simulation"},
			"perception":     {"computer vision", "sensing", "visual perception"},
			"locomotion":     {"walking", "gait", "movement", "mobility"},

			"kinematics":   {"forward kinematics", "inverse kinematics", "joint movement"},
			"dynamics":     {"robot dynamics", "force", "torque", "motion"},
			"control":      {"feedback control", "pid control", "motion control"},
			"navigation":   {"path planning", "slam", "localization", "mapping"},
			"manipulation": {"grasping", "pick and place", "arm control"},

			"machine learning":       {"ml", "artificial intelligence", "neural networks"},
			"deep learning":          {"deep neural networks", "dnn", "cnn", "rnn"},
			"reinforcement learning": {"rl", "q-learning", "policy gradient"},
			"computer vision":        {"cv", "image processing", "object detection"},

			"isaac":  {"nvidia isaac", "isaac sim", "isaac gym"},
			"unity":  {"unity3d", "unity robotics", "unity simulation"},
			"python": {"python3", "python programming"},
			"docker": {"containerization", "docker container"},

			"autonomous": {"autonomy", "self-driving", "automatic"},
			"embodiment": {"embodied intelligence", "physical embodiment"},
			"sensor":     {"sensing", "detector", "perception sensor"},
			"actuator":   {"motor", "actuation", "robotic actuator"},
		},
		Acronyms: map[string]string{
			"ros":   "robot operating system",
			"ros2":  "robot operating system 2",
			"slam":  "simultaneous localization and mapping",
			"rl":    "reinforcement learning",
			"ml":    "machine learning",
			"ai":    "artificial intelligence",
			"cv":    "computer vision",
			"dnn":   "deep neural network",
			"cnn":   "convolutional neural network",
			"rnn":   "recurrent neural network",
			"lstm":  "long short-term memory",
			"gan":   "generative adversarial network",
			"vae":   "variational autoencoder",
			"pid":   "proportional integral derivative",
			"imu":   "inertial measurement unit",
			"lidar": "light detection and ranging",
			"rgb-d": "red green blue depth",
			"urdf":  "unified robot description format",
			"sdf":   "simulation description format",
		},
		QuestionPatterns: map[string][]string{
			"what is":   {"definition", "explain", "describe", "meaning of"},
			"how does":  {"process", "mechanism", "working", "operation"},
			"why is":    {"reason", "purpose", "importance", "significance"},
			"where can": {"location", "place", "find", "get"},
			"how to":    {"tutorial", "guide", "steps", "instructions"},
			"examples":  {"example", "sample", "demonstration", "illustration"},
		},
		AmbiguousTerms: map[string][]string{
			"robot":      {"humanoid robot", "industrial robot", "mobile robot"},
			"ai":         {"physical ai", "machine learning", "deep learning"},
			"control":    {"feedback control", "motion control", "path control"},
			"simulation": {"gazebo simulation", "unity simulation", "isaac simulation"},
		},
		MechanismTerms: []string{"ros", "gazebo", "isaac", "unity", "slam"},
		TutorialTerms:  []string{"kinematics", "dynamics", "control", "navigation"},
		TradeoffTerms:  []string{"physical ai", "humanoid robot", "ros", "gazebo"},
	}
}

// LoadDictionary reads a YAML dictionary file. Sections missing from the
// file are empty, not defaulted.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("query: read dictionary: %w", err)
	}
	return ParseDictionary(data)
}

// ParseDictionary decodes a YAML dictionary. Keys are normalized to lower case.
func ParseDictionary(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("query: parse dictionary: %w", err)
	}
	return d.normalized(), nil
}

// normalized returns a deep copy with lower-cased, trimmed keys and values.
func (d *Dictionary) normalized() *Dictionary {
	lowerList := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			if s = normalize(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	lowerMap := func(in map[string][]string) map[string][]string {
		out := make(map[string][]string, len(in))
		for k, v := range in {
			if k = normalize(k); k != "" {
				out[k] = append(out[k], lowerList(v)...)
			}
		}
		return out
	}
	acr := make(map[string]string, len(d.Acronyms))
	for k, v := range d.Acronyms {
		if k = normalize(k); k != "" {
			acr[k] = normalize(v)
		}
	}
	return &Dictionary{
		Synonyms:         lowerMap(d.Synonyms),
		Acronyms:         acr,
		QuestionPatterns: lowerMap(d.QuestionPatterns),
		AmbiguousTerms:   lowerMap(d.AmbiguousTerms),
		MechanismTerms:   lowerList(d.MechanismTerms),
		TutorialTerms:    lowerList(d.TutorialTerms),
		TradeoffTerms:    lowerList(d.TradeoffTerms),
	}
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
