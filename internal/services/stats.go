package services

import (
	"time"

	"github.com/parolevive/backend/internal/models"
	"gorm.io/gorm"
)

// StatsService computes the admin overview with read-side full scans.
// No caching: cost grows with collection size on every call.
type StatsService struct {
	DB *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db}
}

type StatsRange struct {
	From *time.Time
	To   *time.Time
}

type Overview struct {
	Users     UserStats     `json:"users"`
	Audios    MediaStats    `json:"audios"`
	Sermons   SermonStats   `json:"sermons"`
	Posts     PostStats     `json:"posts"`
	Events    EventStats    `json:"events"`
	Donations DonationStats `json:"donations"`
}

type UserStats struct {
	Total  int64            `json:"total"`
	ByRole map[string]int64 `json:"byRole"`
}

type MediaStats struct {
	Total          int64          `json:"total"`
	TotalPlays     int64          `json:"totalPlays"`
	TotalDownloads int64          `json:"totalDownloads"`
	TopByPlays     []models.Audio `json:"topByPlays"`
}

type SermonStats struct {
	Total          int64 `json:"total"`
	TotalDownloads int64 `json:"totalDownloads"`
}

type PostStats struct {
	Total      int64         `json:"total"`
	TotalLikes int64         `json:"totalLikes"`
	TotalViews int64         `json:"totalViews"`
	TopByLikes []models.Post `json:"topByLikes"`
}

type EventStats struct {
	Total    int64 `json:"total"`
	Upcoming int64 `json:"upcoming"`
}

type DonationStats struct {
	Total         int64            `json:"total"`
	TotalAmount   float64          `json:"totalAmount"`
	AverageAmount float64          `json:"averageAmount"`
	ByType        map[string]int64 `json:"byType"`
	ByMethod      map[string]int64 `json:"byMethod"`
}

const statsTopN = 5

func (s *StatsService) Overview(r StatsRange) (*Overview, error) {
	overview := &Overview{
		Users:     UserStats{ByRole: map[string]int64{}},
		Donations: DonationStats{ByType: map[string]int64{}, ByMethod: map[string]int64{}},
	}

	if err := s.DB.Model(&models.User{}).Count(&overview.Users.Total).Error; err != nil {
		return nil, err
	}
	type roleCount struct {
		Role  string
		Count int64
	}
	var roles []roleCount
	if err := s.DB.Model(&models.User{}).Select("role, count(*) as count").Group("role").Scan(&roles).Error; err != nil {
		return nil, err
	}
	for _, rc := range roles {
		overview.Users.ByRole[rc.Role] = rc.Count
	}

	audioQuery := s.ranged(s.DB.Model(&models.Audio{}), r)
	if err := audioQuery.Count(&overview.Audios.Total).Error; err != nil {
		return nil, err
	}
	var audios []models.Audio
	if err := s.ranged(s.DB.Model(&models.Audio{}), r).Find(&audios).Error; err != nil {
		return nil, err
	}
	for _, a := range audios {
		overview.Audios.TotalPlays += a.Plays
		overview.Audios.TotalDownloads += a.Downloads
	}
	if err := s.ranged(s.DB.Model(&models.Audio{}), r).Order("plays DESC").Limit(statsTopN).Find(&overview.Audios.TopByPlays).Error; err != nil {
		return nil, err
	}

	if err := s.ranged(s.DB.Model(&models.Sermon{}), r).Count(&overview.Sermons.Total).Error; err != nil {
		return nil, err
	}
	var sermons []models.Sermon
	if err := s.ranged(s.DB.Model(&models.Sermon{}), r).Find(&sermons).Error; err != nil {
		return nil, err
	}
	for _, sermon := range sermons {
		overview.Sermons.TotalDownloads += sermon.Downloads
	}

	if err := s.ranged(s.DB.Model(&models.Post{}), r).Count(&overview.Posts.Total).Error; err != nil {
		return nil, err
	}
	var posts []models.Post
	if err := s.ranged(s.DB.Model(&models.Post{}), r).Find(&posts).Error; err != nil {
		return nil, err
	}
	for _, p := range posts {
		overview.Posts.TotalLikes += p.Likes
		overview.Posts.TotalViews += p.Views
	}
	if err := s.ranged(s.DB.Model(&models.Post{}), r).Order("likes DESC").Limit(statsTopN).Find(&overview.Posts.TopByLikes).Error; err != nil {
		return nil, err
	}

	if err := s.ranged(s.DB.Model(&models.Event{}), r).Count(&overview.Events.Total).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Event{}).Where("end_date >= ?", time.Now().UTC()).Count(&overview.Events.Upcoming).Error; err != nil {
		return nil, err
	}

	var donations []models.Donation
	if err := s.ranged(s.DB.Model(&models.Donation{}), r).Find(&donations).Error; err != nil {
		return nil, err
	}
	overview.Donations.Total = int64(len(donations))
	for _, d := range donations {
		overview.Donations.TotalAmount += d.Amount
		overview.Donations.ByType[string(d.Type)]++
		overview.Donations.ByMethod[string(d.PaymentMethod)]++
	}
	if overview.Donations.Total > 0 {
		overview.Donations.AverageAmount = overview.Donations.TotalAmount / float64(overview.Donations.Total)
	}

	return overview, nil
}

func (s *StatsService) ranged(query *gorm.DB, r StatsRange) *gorm.DB {
	if r.From != nil {
		query = query.Where("created_at >= ?", *r.From)
	}
	if r.To != nil {
		query = query.Where("created_at <= ?", *r.To)
	}
	return query
}
