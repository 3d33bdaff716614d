package services_test

import (
	"testing"

	"coin-miniapp-system/models"
	"coin-miniapp-system/services"

	"github.com/stretchr/testify/assert"
)

func TestCreateClan(t *testing.T) {
	owner := createUser(t, "clan_owner")

	clan, err := clanService.CreateClan(owner, "  Night Watch  ")
	assert.NoError(t, err)
	assert.Equal(t, "Night Watch", clan.Name)
	assert.Equal(t, "night-watch", clan.Slug)
	assert.Equal(t, int64(1), clan.MemberCount)

	after := reloadUser(t, owner.ID)
	assert.NotNil(t, after.ClanID)
	assert.Equal(t, clan.ID, *after.ClanID)

	// Name collision
	other := createUser(t, "clan_owner2")
	_, err = clanService.CreateClan(other, "Night Watch")
	assert.ErrorIs(t, err, services.ErrClanNameTaken)

	// One clan per user
	_, err = clanService.CreateClan(reloadUser(t, owner.ID), "Second Watch")
	assert.ErrorIs(t, err, services.ErrAlreadyInClan)
}

func TestJoinAndLeaveClan(t *testing.T) {
	owner := createUser(t, "clan_jl_owner")
	member := createUser(t, "clan_jl_member")

	clan, err := clanService.CreateClan(owner, "Join Leave Crew")
	assert.NoError(t, err)

	joined, err := clanService.Join(member, clan.Slug)
	assert.NoError(t, err)
	assert.Equal(t, clan.ID, joined.ID)

	fresh, err := clanService.GetBySlug(clan.Slug)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), fresh.MemberCount)

	// Owner cannot leave while members remain
	err = clanService.Leave(reloadUser(t, owner.ID))
	assert.ErrorIs(t, err, services.ErrClanNotEmpty)

	// Member leaves
	assert.NoError(t, clanService.Leave(reloadUser(t, member.ID)))
	fresh, err = clanService.GetBySlug(clan.Slug)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), fresh.MemberCount)

	// Sole owner leaving disbands the clan
	assert.NoError(t, clanService.Leave(reloadUser(t, owner.ID)))
	_, err = clanService.GetBySlug(clan.Slug)
	assert.ErrorIs(t, err, services.ErrClanNotFound)
}

func TestJoinUnknownClan(t *testing.T) {
	user := createUser(t, "clan_lost")
	_, err := clanService.Join(user, "no-such-clan")
	assert.ErrorIs(t, err, services.ErrClanNotFound)
}

func TestBattleResolvesWager(t *testing.T) {
	challenger := createUser(t, "pvp_challenger")
	opponent := createUser(t, "pvp_opponent")
	assert.NoError(t, db.Model(&models.User{}).Where("id = ?", challenger.ID).Update("coins", 1000).Error)
	assert.NoError(t, db.Model(&models.User{}).Where("id = ?", opponent.ID).Update("coins", 1000).Error)

	battle, err := clanService.Challenge(reloadUser(t, challenger.ID), opponent, 400)
	assert.NoError(t, err)
	assert.Equal(t, models.BattleStatusPending, battle.Status)

	resolved, err := clanService.Accept(battle.ID, opponent.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.BattleStatusResolved, resolved.Status)
	assert.NotNil(t, resolved.WinnerID)
	assert.Contains(t, []string{challenger.ID, opponent.ID}, *resolved.WinnerID)

	chAfter := reloadUser(t, challenger.ID)
	opAfter := reloadUser(t, opponent.ID)
	assert.Equal(t, int64(2000), chAfter.Coins+opAfter.Coins, "the pot is conserved")
	if *resolved.WinnerID == challenger.ID {
		assert.Equal(t, int64(1400), chAfter.Coins)
		assert.Equal(t, int64(600), opAfter.Coins)
	} else {
		assert.Equal(t, int64(600), chAfter.Coins)
		assert.Equal(t, int64(1400), opAfter.Coins)
	}

	// Resolved battles cannot be accepted again
	_, err = clanService.Accept(battle.ID, opponent.ID)
	assert.ErrorIs(t, err, services.ErrBattleNotPending)
}

func TestBattleGuards(t *testing.T) {
	poor := createUser(t, "pvp_poor")
	rich := createUser(t, "pvp_rich")
	assert.NoError(t, db.Model(&models.User{}).Where("id = ?", rich.ID).Update("coins", 10000).Error)

	_, err := clanService.Challenge(poor, rich, 100)
	assert.ErrorIs(t, err, services.ErrInsufficientBet)

	richLoaded := reloadUser(t, rich.ID)
	_, err = clanService.Challenge(richLoaded, richLoaded, 100)
	assert.Error(t, err)

	// Opponent cannot cover the wager at resolution time
	battle, err := clanService.Challenge(richLoaded, poor, 100)
	assert.NoError(t, err)
	_, err = clanService.Accept(battle.ID, poor.ID)
	assert.ErrorIs(t, err, services.ErrInsufficientBet)
}

func TestBattleDecline(t *testing.T) {
	a := createUser(t, "pvp_decl_a")
	b := createUser(t, "pvp_decl_b")
	assert.NoError(t, db.Model(&models.User{}).Where("id = ?", a.ID).Update("coins", 500).Error)

	battle, err := clanService.Challenge(reloadUser(t, a.ID), b, 100)
	assert.NoError(t, err)
	assert.NoError(t, clanService.Decline(battle.ID, b.ID))

	// Only pending battles can be declined, and only by the opponent
	assert.ErrorIs(t, clanService.Decline(battle.ID, b.ID), services.ErrBattleNotPending)
	assert.ErrorIs(t, clanService.Decline(battle.ID, a.ID), services.ErrBattleNotPending)
}
