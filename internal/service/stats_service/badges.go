package stats_service

type BadgeInput struct {
	Solved        SolvedCounts
	CurrentStreak int
	LongestStreak int
}

type badgeRule struct {
	name   string
	earned func(BadgeInput) bool
}

var badgeRules = []badgeRule{
	{"First Solve", func(in BadgeInput) bool { return in.Solved.Total() >= 1 }},
	{"Ten Down", func(in BadgeInput) bool { return in.Solved.Total() >= 10 }},
	{"Half Century", func(in BadgeInput) bool { return in.Solved.Total() >= 50 }},
	{"Centurion", func(in BadgeInput) bool { return in.Solved.Total() >= 100 }},
	{"Hard Hitter", func(in BadgeInput) bool { return in.Solved.Hard >= 10 }},
	{"Week Warrior", func(in BadgeInput) bool { return max(in.CurrentStreak, in.LongestStreak) >= 7 }},
	{"Month Marathoner", func(in BadgeInput) bool { return max(in.CurrentStreak, in.LongestStreak) >= 30 }},
}

// EarnedBadges lists every badge the input qualifies for, in rule order.
// Callers merge the result into what the member already has.
func EarnedBadges(in BadgeInput) []string {
	res := make([]string, 0)
	for _, rule := range badgeRules {
		if rule.earned(in) {
			res = append(res, rule.name)
		}
	}
	return res
}
